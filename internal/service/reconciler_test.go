package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/repository/memstore"
)

const (
	pend = model.BookingPending
	conf = model.BookingConfirmed
	decl = model.BookingDeclined
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.BookingStatus
		want     model.EventStatus
		ignoring model.EventStatus
	}{
		{"no bookings", nil, model.EventUnfilled, model.EventUnfilled},
		{"single pending", []model.BookingStatus{pend}, model.EventUnfilled, model.EventUnfilled},
		{"all confirmed", []model.BookingStatus{conf, conf}, model.EventConfirmed, model.EventConfirmed},
		{"confirmed and pending", []model.BookingStatus{conf, pend}, model.EventPartiallyFilled, model.EventPartiallyFilled},
		{"confirmed and declined", []model.BookingStatus{conf, decl}, model.EventPartiallyFilled, model.EventConfirmed},
		{"only declined", []model.BookingStatus{decl, decl}, model.EventUnfilled, model.EventUnfilled},
		{"pending and declined", []model.BookingStatus{pend, decl}, model.EventUnfilled, model.EventUnfilled},
		{"mixed", []model.BookingStatus{conf, pend, decl}, model.EventPartiallyFilled, model.EventPartiallyFilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.statuses, StatusPolicy{}))
			assert.Equal(t, tt.ignoring, DeriveStatus(tt.statuses, StatusPolicy{IgnoreDeclined: true}))
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	ev := f.event(t, "2026-11-01", PositionInput{Role: "Guitar", Quantity: 1})
	f.available(t, alice, "2026-11-01", true)
	b := f.propose(t, ev, alice, model.RoleGuitar)
	_, err := f.engine.RespondToBooking(ctx, b.ID, alice.ID, Accept)
	require.NoError(t, err)

	before, err := f.store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)

	r := NewReconciler(f.store, StatusPolicy{}, zap.NewNop())
	for i := 0; i < 3; i++ {
		st, err := r.Reconcile(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EventConfirmed, st)
	}
	after, err := f.store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "an unchanged status is not rewritten")
}

func TestReconcileOverridesManualStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, "2026-11-02", PositionInput{Role: "Drums"})

	_, err := f.events.Update(ctx, ev.ID, EventInput{
		Date: ev.Date, Venue: ev.Venue, Time: ev.Time, Name: ev.Name, Status: "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventConfirmed, f.eventStatus(t, ev.ID))

	st, err := NewReconciler(f.store, StatusPolicy{}, zap.NewNop()).Reconcile(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventUnfilled, st)
}

func TestReconcileUnknownEvent(t *testing.T) {
	r := NewReconciler(memstore.New(), StatusPolicy{}, zap.NewNop())
	_, err := r.Reconcile(context.Background(), 42)
	requireKind(t, err, KindNotFound)
}
