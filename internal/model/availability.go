package model

import "time"

// Availability is one person's declaration for one day.  There is at most
// one record per (Date, UserID); resubmitting overwrites it.
type Availability struct {
	ID          uint64    `json:"id"`
	Date        Date      `json:"date"`
	UserID      uint64    `json:"user_id"`
	Available   bool      `json:"available"`
	Notes       *string   `json:"notes,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AvailabilityEntry is an availability record joined with the person's
// display fields.
type AvailabilityEntry struct {
	Availability
	PersonSummary
}

// AvailabilityFilter narrows availability listings.  Zero values disable a
// criterion.
type AvailabilityFilter struct {
	Date      Date
	StartDate Date
	EndDate   Date
	UserID    uint64
}

// Matches reports whether a passes the filter.
func (f AvailabilityFilter) Matches(a *Availability) bool {
	if !f.Date.IsZero() && !a.Date.Equal(f.Date) {
		return false
	}
	if !f.StartDate.IsZero() && a.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && a.Date.After(f.EndDate) {
		return false
	}
	if f.UserID != 0 && a.UserID != f.UserID {
		return false
	}
	return true
}

// Candidate is a person who could be proposed for a position: matching role,
// available on the event date and not yet booked on the event.
type Candidate struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Contact          string       `json:"contact"`
	EmergencyContact *string      `json:"emergency_contact,omitempty"`
	RoleCategory     RoleCategory `json:"role_category"`
	Notes            *string      `json:"notes,omitempty"`
}

// PositionNeed is the projection of one requirement of an open event.
// RemainingNeeded is not clamped and goes negative when overbooked.
type PositionNeed struct {
	Role            RoleCategory `json:"position"`
	QuantityNeeded  int          `json:"quantity_needed"`
	BookedCount     int          `json:"booked_count"`
	RemainingNeeded int          `json:"remaining_needed"`
	AvailablePeople []Candidate  `json:"available_people"`
}

// EventNeeds is an open event with its per-position needs and its current
// bookings.
type EventNeeds struct {
	Event
	Positions []PositionNeed  `json:"positions"`
	Bookings  []BookingDetail `json:"bookings"`
}
