// Package queue carries the booking lifecycle audit trail over RabbitMQ: a
// publisher used by the assignment engine and a consumer that writes every
// event to the audit log.
package queue

import "time"

// BookingEventType names a step in a booking's lifecycle.
type BookingEventType string

const (
	BookingProposed  BookingEventType = "booking.proposed"
	BookingConfirmed BookingEventType = "booking.confirmed"
	BookingDeclined  BookingEventType = "booking.declined"
)

// BookingEvent is published after a booking is created or answered.  It
// contains enough information for the audit consumer to write a complete
// line without querying the primary database.
type BookingEvent struct {
	Type        BookingEventType `json:"type"`
	BookingID   uint64           `json:"booking_id"`
	EventID     uint64           `json:"event_id"`
	EventName   string           `json:"event_name"`
	EventDate   string           `json:"event_date"`
	Role        string           `json:"role"`
	UserID      uint64           `json:"user_id"`
	PersonName  string           `json:"person_name,omitempty"`
	ActorID     uint64           `json:"actor_id"`
	EventStatus string           `json:"event_status,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}
