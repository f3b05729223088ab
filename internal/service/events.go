package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/repository"
)

// EventService manages events and their position requirements.
type EventService struct {
	store Store
	log   *zap.Logger
}

func NewEventService(store Store, log *zap.Logger) *EventService {
	return &EventService{store: store, log: log}
}

// PositionInput is one requested role on a new event.  A zero Quantity
// means one person.
type PositionInput struct {
	Role     string
	Quantity int
}

// EventInput carries the editable fields of an event.
type EventInput struct {
	Date      model.Date
	Venue     string
	Time      string
	Name      string
	Notes     *string
	Positions []PositionInput
	// Status is only honoured by Update.
	Status string
}

// Create stores a new event with its requirements.  Every role must be a
// known category and may appear at most once.
func (s *EventService) Create(ctx context.Context, createdBy uint64, in EventInput) (*model.Event, []model.Position, error) {
	if fields := validateEventFields(in); len(fields) > 0 {
		return nil, nil, ValidationError("Invalid event", fields...)
	}
	reqs := make([]model.PositionRequest, 0, len(in.Positions))
	seen := map[model.RoleCategory]bool{}
	var fields []FieldError
	for i, p := range in.Positions {
		role, err := model.ParseRoleCategory(p.Role)
		if err != nil {
			fields = append(fields, FieldError{Field: fmt.Sprintf("positions[%d].role", i), Message: err.Error()})
			continue
		}
		if seen[role] {
			fields = append(fields, FieldError{Field: fmt.Sprintf("positions[%d].role", i), Message: fmt.Sprintf("duplicate position %s", role)})
			continue
		}
		seen[role] = true
		qty := p.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			fields = append(fields, FieldError{Field: fmt.Sprintf("positions[%d].quantity", i), Message: "must be at least 1"})
			continue
		}
		reqs = append(reqs, model.PositionRequest{Role: role, Quantity: qty})
	}
	if len(fields) > 0 {
		return nil, nil, ValidationError("Invalid positions", fields...)
	}

	e := &model.Event{
		Date:      in.Date,
		Venue:     strings.TrimSpace(in.Venue),
		Time:      strings.TrimSpace(in.Time),
		Name:      strings.TrimSpace(in.Name),
		Notes:     in.Notes,
		CreatedBy: createdBy,
	}
	positions, err := s.store.CreateEvent(ctx, e, reqs)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ValidationError("Invalid positions", FieldError{Field: "positions", Message: "duplicate position"})
		}
		return nil, nil, internalError("create event", err)
	}
	s.log.Info("event created", zap.Uint64("event_id", e.ID), zap.String("date", e.Date.String()), zap.Int("positions", len(positions)))
	return e, positions, nil
}

// Get returns an event with its requirements and bookings.
func (s *EventService) Get(ctx context.Context, id uint64) (*model.EventDetail, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.ListPositions(ctx, id)
	if err != nil {
		return nil, internalError("list positions", err)
	}
	bookings, err := s.store.ListEventBookings(ctx, id)
	if err != nil {
		return nil, internalError("list event bookings", err)
	}
	return &model.EventDetail{Event: *e, Positions: positions, Bookings: bookings}, nil
}

// List returns events matching f ordered by date.
func (s *EventService) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx, f)
	if err != nil {
		return nil, internalError("list events", err)
	}
	return events, nil
}

// Update overwrites every editable field of the event.  Status may be set
// explicitly here; it stays in place until the next booking change
// triggers reconciliation.  An empty Status keeps the current one.
func (s *EventService) Update(ctx context.Context, id uint64, in EventInput) (*model.Event, error) {
	if fields := validateEventFields(in); len(fields) > 0 {
		return nil, ValidationError("Invalid event", fields...)
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != "" {
		st, err := model.ParseEventStatus(in.Status)
		if err != nil {
			return nil, ValidationError("Invalid event", FieldError{Field: "status", Message: err.Error()})
		}
		e.Status = st
	}
	e.Date = in.Date
	e.Venue = strings.TrimSpace(in.Venue)
	e.Time = strings.TrimSpace(in.Time)
	e.Name = strings.TrimSpace(in.Name)
	e.Notes = in.Notes
	if err := s.store.UpdateEvent(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Event not found")
		}
		return nil, internalError("update event", err)
	}
	return e, nil
}

// Delete removes the event together with its requirements and bookings.
func (s *EventService) Delete(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := s.store.DeleteEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Event not found")
		}
		return nil, internalError("delete event", err)
	}
	s.log.Info("event deleted", zap.Uint64("event_id", id))
	return e, nil
}

// Roster is an event together with everyone booked on it.
type Roster struct {
	Event model.Event           `json:"event"`
	Team  []model.BookingDetail `json:"team"`
}

// Roster returns the event's team ordered by role.
func (s *EventService) Roster(ctx context.Context, id uint64) (*Roster, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	team, err := s.store.ListEventBookings(ctx, id)
	if err != nil {
		return nil, internalError("list event bookings", err)
	}
	return &Roster{Event: *e, Team: team}, nil
}

func (s *EventService) load(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Event not found")
		}
		return nil, internalError("load event", err)
	}
	return e, nil
}

func validateEventFields(in EventInput) []FieldError {
	var fields []FieldError
	if in.Date.IsZero() {
		fields = append(fields, FieldError{Field: "date", Message: "required"})
	}
	if strings.TrimSpace(in.Venue) == "" {
		fields = append(fields, FieldError{Field: "venue", Message: "required"})
	}
	if strings.TrimSpace(in.Time) == "" {
		fields = append(fields, FieldError{Field: "time", Message: "required"})
	}
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "required"})
	}
	return fields
}
