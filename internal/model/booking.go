package model

import "time"

// BookingStatus is the lifecycle state of a single booking.  pending is the
// only non-terminal state.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingDeclined  BookingStatus = "declined"
)

// Terminal reports whether no further transition is allowed from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingDeclined
}

// Booking assigns one person to one role on one event.  A person holds at
// most one booking per event, whatever the role or status.
type Booking struct {
	ID          uint64        `json:"id"`
	EventID     uint64        `json:"event_id"`
	Role        RoleCategory  `json:"role"`
	UserID      uint64        `json:"user_id"`
	Status      BookingStatus `json:"status"`
	BookedBy    uint64        `json:"booked_by"`
	BookedAt    time.Time     `json:"booked_at"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
}

// BookingDetail is a booking joined with the booked person's display fields.
type BookingDetail struct {
	Booking
	PersonSummary
}

// UserBooking is a booking joined with the fields of its event, as shown to
// the booked person.
type UserBooking struct {
	Booking
	EventDate Date   `json:"date"`
	EventName string `json:"name"`
	Venue     string `json:"venue"`
	Time      string `json:"time"`
}

// MyBookings partitions a person's bookings.  Declined bookings are omitted.
type MyBookings struct {
	Pending   []UserBooking `json:"pending"`
	Confirmed []UserBooking `json:"confirmed"`
}
