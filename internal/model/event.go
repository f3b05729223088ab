package model

import (
	"fmt"
	"time"
)

// EventStatus is the fulfilment state of an event.  It is derived from the
// event's bookings; only the status reconciler and the manager's full update
// write it.
type EventStatus string

const (
	EventUnfilled        EventStatus = "unfilled"
	EventPartiallyFilled EventStatus = "partially_filled"
	EventConfirmed       EventStatus = "confirmed"
)

// OpenStatuses are the states in which an event still needs people.
var OpenStatuses = []EventStatus{EventUnfilled, EventPartiallyFilled}

func (s EventStatus) Valid() bool {
	switch s {
	case EventUnfilled, EventPartiallyFilled, EventConfirmed:
		return true
	}
	return false
}

// ParseEventStatus validates s against the known statuses.
func ParseEventStatus(s string) (EventStatus, error) {
	st := EventStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown event status %q", s)
	}
	return st, nil
}

// Event is a dated engagement that needs staffing.
//
// Fields:
//
//	Date      – the day of the engagement; availability is matched against it.
//	Venue     – where it takes place.
//	Time      – free-form time of day ("19:30", "doors 7pm").
//	Status    – derived fulfilment state.
//	CreatedBy – the manager who created it.
type Event struct {
	ID        uint64      `json:"id"`
	Date      Date        `json:"date"`
	Venue     string      `json:"venue"`
	Time      string      `json:"time"`
	Name      string      `json:"name"`
	Notes     *string     `json:"notes,omitempty"`
	Status    EventStatus `json:"status"`
	CreatedBy uint64      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Position is an event's requirement for Quantity people of one role.
type Position struct {
	ID        uint64       `json:"id"`
	EventID   uint64       `json:"event_id"`
	Role      RoleCategory `json:"role"`
	Quantity  int          `json:"quantity"`
	CreatedAt time.Time    `json:"created_at"`
}

// PositionRequest is a requirement supplied when creating an event.
type PositionRequest struct {
	Role     RoleCategory
	Quantity int
}

// EventFilter narrows event listings.  Zero values disable a criterion.
type EventFilter struct {
	StartDate Date
	EndDate   Date
	Statuses  []EventStatus
}

// Matches reports whether e passes the filter.  SQL stores apply the same
// criteria in their WHERE clause; the in-memory store uses this directly.
func (f EventFilter) Matches(e *Event) bool {
	if !f.StartDate.IsZero() && e.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && e.Date.After(f.EndDate) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if e.Status == s {
			return true
		}
	}
	return false
}

// EventDetail is an event together with its requirements and bookings.
type EventDetail struct {
	Event     Event           `json:"event"`
	Positions []Position      `json:"positions"`
	Bookings  []BookingDetail `json:"bookings"`
}
