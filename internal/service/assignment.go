package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/queue"
	"github.com/iliyamo/crew-booking/internal/repository"
)

// Auditor receives booking lifecycle events.  Publishing is best effort:
// a failure is logged and never undoes the booking change.
type Auditor interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// BookingPolicy holds the optional proposal rules.
type BookingPolicy struct {
	// CapPositions rejects a proposal when the event has no requirement for
	// the role, or when pending and confirmed bookings already occupy every
	// slot of that requirement.
	CapPositions bool
}

// Decision is a booked person's answer to an offer.
type Decision int

const (
	Accept Decision = iota
	Decline
)

// Engine validates and records booking proposals and responses.
type Engine struct {
	store      Store
	reconciler *Reconciler
	audit      Auditor
	policy     BookingPolicy
	log        *zap.Logger
	now        func() time.Time
}

// NewEngine wires the assignment engine.  audit may be nil.
func NewEngine(store Store, reconciler *Reconciler, audit Auditor, policy BookingPolicy, log *zap.Logger) *Engine {
	return &Engine{
		store:      store,
		reconciler: reconciler,
		audit:      audit,
		policy:     policy,
		log:        log,
		now:        time.Now,
	}
}

// ProposeRequest asks for PersonID to be booked on EventID as Role.
// ActorID is the coordinator making the proposal.
type ProposeRequest struct {
	EventID  uint64
	Role     string
	PersonID uint64
	ActorID  uint64
}

// Proposal is the outcome of a successful proposal.
type Proposal struct {
	Booking     *model.Booking
	Message     string
	EventStatus model.EventStatus
}

// ProposeBooking creates a pending booking.  An unknown role is rejected
// first and a missing event second, before any person check, so a missing
// event and a missing person together report "Event not found".  It then
// checks, in order, that the person exists, holds exactly the requested role, declared themselves
// available on the event date and has no booking on the event.  The first
// failing check decides the error and nothing is written.  The unique key
// on (event, person) still guards the insert, so a proposal that loses a
// race to a concurrent one fails with a storage error.
func (e *Engine) ProposeBooking(ctx context.Context, req ProposeRequest) (*Proposal, error) {
	role, err := model.ParseRoleCategory(req.Role)
	if err != nil {
		return nil, ValidationError("Invalid position", FieldError{Field: "position", Message: err.Error()})
	}
	event, err := e.store.GetEvent(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Event not found")
		}
		return nil, internalError("load event", err)
	}

	person, err := e.store.GetPerson(ctx, req.PersonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, e.reject(req, NotFoundError("User not found"))
		}
		return nil, internalError("load person", err)
	}
	if person.RoleCategory != role {
		msg := fmt.Sprintf("This person is registered as %s, not %s", person.RoleCategory.Label(), role)
		return nil, e.reject(req, ConflictError(msg))
	}
	available, err := e.store.IsAvailable(ctx, person.ID, event.Date)
	if err != nil {
		return nil, internalError("check availability", err)
	}
	if !available {
		return nil, e.reject(req, ConflictError("Person is not available on this date"))
	}
	booked, err := e.store.HasBooking(ctx, event.ID, person.ID)
	if err != nil {
		return nil, internalError("check existing booking", err)
	}
	if booked {
		return nil, e.reject(req, ConflictError("Person already booked for this event"))
	}
	if e.policy.CapPositions {
		if cerr := e.checkCapacity(ctx, event.ID, role); cerr != nil {
			return nil, e.reject(req, cerr)
		}
	}

	b := &model.Booking{
		EventID:  event.ID,
		Role:     role,
		UserID:   person.ID,
		Status:   model.BookingPending,
		BookedBy: req.ActorID,
	}
	if err := e.store.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, e.reject(req, StorageError("Person already booked for this event", err))
		}
		return nil, internalError("create booking", err)
	}

	status := e.reconcile(ctx, event.ID)
	e.publish(ctx, queue.BookingProposed, b, event, person.Name, req.ActorID, status)

	e.log.Info("booking proposed",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("event_id", event.ID),
		zap.Uint64("user_id", person.ID),
		zap.String("role", string(role)),
		zap.Uint64("booked_by", req.ActorID))

	return &Proposal{
		Booking:     b,
		Message:     fmt.Sprintf("%s booked for %s. Awaiting confirmation.", person.Name, role),
		EventStatus: status,
	}, nil
}

// checkCapacity enforces the optional position cap.
func (e *Engine) checkCapacity(ctx context.Context, eventID uint64, role model.RoleCategory) *Error {
	positions, err := e.store.ListPositions(ctx, eventID)
	if err != nil {
		return internalError("list positions", err)
	}
	quantity := -1
	for _, p := range positions {
		if p.Role == role {
			quantity = p.Quantity
			break
		}
	}
	if quantity < 0 {
		return ConflictError(fmt.Sprintf("Event has no %s position", role))
	}
	bookings, err := e.store.ListEventBookings(ctx, eventID)
	if err != nil {
		return internalError("list bookings", err)
	}
	occupied := 0
	for _, b := range bookings {
		if b.Role == role && b.Status != model.BookingDeclined {
			occupied++
		}
	}
	if occupied >= quantity {
		return ConflictError(fmt.Sprintf("All %s positions are filled", role))
	}
	return nil
}

// Response is the outcome of accepting or declining a booking.
type Response struct {
	Booking     *model.Booking
	Message     string
	EventStatus model.EventStatus
}

// RespondToBooking records the booked person's answer.  Only the booked
// person may answer, and only while the booking is pending.  A booking that
// does not exist is reported the same way as one owned by someone else.
func (e *Engine) RespondToBooking(ctx context.Context, bookingID, personID uint64, d Decision) (*Response, error) {
	status, msg, evType := model.BookingConfirmed, "Booking confirmed", queue.BookingConfirmed
	if d == Decline {
		status, msg, evType = model.BookingDeclined, "Booking declined", queue.BookingDeclined
	}

	b, err := e.store.RespondBooking(ctx, bookingID, personID, status, e.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden), errors.Is(err, repository.ErrNotFound):
			return nil, AuthorizationError("Not authorized")
		case errors.Is(err, repository.ErrConflict):
			current := "decided"
			if b != nil {
				current = string(b.Status)
			}
			return nil, ConflictError(fmt.Sprintf("Booking already %s", current))
		}
		return nil, internalError("respond to booking", err)
	}

	eventStatus := e.reconcile(ctx, b.EventID)
	if e.audit != nil {
		if event, gerr := e.store.GetEvent(ctx, b.EventID); gerr == nil {
			e.publish(ctx, evType, b, event, "", personID, eventStatus)
		}
	}

	e.log.Info("booking answered",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("event_id", b.EventID),
		zap.Uint64("user_id", personID),
		zap.String("status", string(b.Status)))

	return &Response{Booking: b, Message: msg, EventStatus: eventStatus}, nil
}

// ListMyBookings returns the person's pending and confirmed bookings,
// each ordered by event date.  Declined bookings are left out.
func (e *Engine) ListMyBookings(ctx context.Context, personID uint64) (*model.MyBookings, error) {
	all, err := e.store.ListUserBookings(ctx, personID)
	if err != nil {
		return nil, internalError("list user bookings", err)
	}
	out := &model.MyBookings{Pending: []model.UserBooking{}, Confirmed: []model.UserBooking{}}
	for _, b := range all {
		switch b.Status {
		case model.BookingPending:
			out.Pending = append(out.Pending, b)
		case model.BookingConfirmed:
			out.Confirmed = append(out.Confirmed, b)
		}
	}
	return out, nil
}

// reconcile runs after a booking change has been committed.  The change
// stands even if reconciliation fails; the next booking change or an
// explicit update repairs the status, so the failure is only logged.
func (e *Engine) reconcile(ctx context.Context, eventID uint64) model.EventStatus {
	status, err := e.reconciler.Reconcile(ctx, eventID)
	if err != nil {
		e.log.Error("reconcile after booking change failed", zap.Uint64("event_id", eventID), zap.Error(err))
		return ""
	}
	return status
}

func (e *Engine) publish(ctx context.Context, t queue.BookingEventType, b *model.Booking, event *model.Event, personName string, actor uint64, status model.EventStatus) {
	if e.audit == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:        t,
		BookingID:   b.ID,
		EventID:     event.ID,
		EventName:   event.Name,
		EventDate:   event.Date.String(),
		Role:        string(b.Role),
		UserID:      b.UserID,
		PersonName:  personName,
		ActorID:     actor,
		EventStatus: string(status),
		OccurredAt:  e.now().UTC(),
	}
	if err := e.audit.PublishBookingEvent(ctx, ev); err != nil {
		e.log.Warn("publish booking event failed", zap.String("type", string(t)), zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

func (e *Engine) reject(req ProposeRequest, err *Error) *Error {
	e.log.Info("booking proposal rejected",
		zap.Uint64("event_id", req.EventID),
		zap.Uint64("user_id", req.PersonID),
		zap.String("role", req.Role),
		zap.Uint64("actor_id", req.ActorID),
		zap.String("reason", err.Message))
	return err
}
