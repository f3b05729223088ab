package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/queue"
	"github.com/iliyamo/crew-booking/internal/repository/memstore"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (a *recordingAuditor) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return a.err
}

func (a *recordingAuditor) types() []queue.BookingEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]queue.BookingEventType, len(a.events))
	for i, ev := range a.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	store  *memstore.Store
	engine *Engine
	events *EventService
	avail  *AvailabilityService
	needs  *NeedsProjector
	audit  *recordingAuditor
	logs   *observer.ObservedLogs

	director *model.Person
	manager  *model.Person
}

type fixtureOption func(*StatusPolicy, *BookingPolicy)

func withIgnoreDeclined() fixtureOption {
	return func(sp *StatusPolicy, _ *BookingPolicy) { sp.IgnoreDeclined = true }
}

func withCapPositions() fixtureOption {
	return func(_ *StatusPolicy, bp *BookingPolicy) { bp.CapPositions = true }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	var (
		sp StatusPolicy
		bp BookingPolicy
	)
	for _, o := range opts {
		o(&sp, &bp)
	}
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	store := memstore.New()
	audit := &recordingAuditor{}
	f := &fixture{
		store:  store,
		engine: NewEngine(store, NewReconciler(store, sp, log), audit, bp, log),
		events: NewEventService(store, log),
		avail:  NewAvailabilityService(store, log),
		needs:  NewNeedsProjector(store),
		audit:  audit,
		logs:   logs,
	}
	f.director = f.person(t, "Dana Director", model.UserTypeMusicalDirector, model.RoleNone)
	f.manager = f.person(t, "Morgan Manager", model.UserTypeManager, model.RoleNone)
	return f
}

func (f *fixture) person(t *testing.T, name string, ut model.UserType, role model.RoleCategory) *model.Person {
	t.Helper()
	p := &model.Person{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		UserType:     ut,
		RoleCategory: role,
		Contact:      "555-0100",
	}
	require.NoError(t, f.store.CreateUser(context.Background(), p))
	return p
}

func (f *fixture) musician(t *testing.T, name string, role model.RoleCategory) *model.Person {
	return f.person(t, name, model.UserTypeMusician, role)
}

func (f *fixture) event(t *testing.T, date string, positions ...PositionInput) *model.Event {
	t.Helper()
	e, _, err := f.events.Create(context.Background(), f.manager.ID, EventInput{
		Date:      mustDate(t, date),
		Venue:     "Main Hall",
		Time:      "19:30",
		Name:      "Gig " + date,
		Positions: positions,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) available(t *testing.T, p *model.Person, date string, available bool) {
	t.Helper()
	_, err := f.avail.Submit(context.Background(), p.ID, mustDate(t, date), available, nil)
	require.NoError(t, err)
}

func (f *fixture) propose(t *testing.T, e *model.Event, p *model.Person, role model.RoleCategory) *model.Booking {
	t.Helper()
	prop, err := f.engine.ProposeBooking(context.Background(), ProposeRequest{
		EventID: e.ID, Role: string(role), PersonID: p.ID, ActorID: f.director.ID,
	})
	require.NoError(t, err)
	return prop.Booking
}

func (f *fixture) eventStatus(t *testing.T, id uint64) model.EventStatus {
	t.Helper()
	e, err := f.store.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return e.Status
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind, "unexpected kind for %v", err)
	return se
}
