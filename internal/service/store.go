// Package service holds the booking-and-availability core: the assignment
// engine, the status reconciler, the needs projector and the availability and
// event operations.  It talks to storage only through the interfaces below,
// which are implemented by the MySQL repositories and by the in-memory store.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/crew-booking/internal/model"
)

// PersonStore reads people from the identity provider's table.
type PersonStore interface {
	GetPerson(ctx context.Context, id uint64) (*model.Person, error)
}

// AvailabilityStore persists day-level availability declarations.
type AvailabilityStore interface {
	// UpsertAvailability inserts or overwrites the record for (date, userID)
	// atomically and refreshes submitted_at.
	UpsertAvailability(ctx context.Context, userID uint64, date model.Date, available bool, notes *string) (*model.Availability, error)
	ListAvailability(ctx context.Context, f model.AvailabilityFilter) ([]model.AvailabilityEntry, error)
	// DeleteAvailability removes the record only when it belongs to userID.
	// It returns repository.ErrNotFound otherwise.
	DeleteAvailability(ctx context.Context, id, userID uint64) (*model.Availability, error)
	IsAvailable(ctx context.Context, userID uint64, date model.Date) (bool, error)
	// ListCandidates returns people of the given role who are available on
	// date and hold no booking of any kind on eventID.
	ListCandidates(ctx context.Context, eventID uint64, date model.Date, role model.RoleCategory) ([]model.Candidate, error)
}

// EventStore persists events and their position requirements.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event, positions []model.PositionRequest) ([]model.Position, error)
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	ListPositions(ctx context.Context, eventID uint64) ([]model.Position, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id uint64) (*model.Event, error)
	// ReconcileStatus serialises on the event row, reads the statuses of all
	// of its bookings after acquiring the lock, stores derive(statuses) and
	// returns it.
	ReconcileStatus(ctx context.Context, eventID uint64, derive func([]model.BookingStatus) model.EventStatus) (model.EventStatus, error)
}

// BookingStore is the booking ledger.
type BookingStore interface {
	// CreateBooking inserts b and fills its ID and BookedAt.  A second
	// booking for the same (event, person) fails with repository.ErrDuplicate.
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	HasBooking(ctx context.Context, eventID, userID uint64) (bool, error)
	// RespondBooking moves a pending booking owned by userID to status.
	// confirmed_at is set to at when status is confirmed.  It returns
	// repository.ErrConflict when the booking is no longer pending.
	RespondBooking(ctx context.Context, id, userID uint64, status model.BookingStatus, at time.Time) (*model.Booking, error)
	ListEventBookings(ctx context.Context, eventID uint64) ([]model.BookingDetail, error)
	ListUserBookings(ctx context.Context, userID uint64) ([]model.UserBooking, error)
}

// Store bundles every store the core needs.
type Store interface {
	PersonStore
	AvailabilityStore
	EventStore
	BookingStore
}
