package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crew-booking/internal/model"
)

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notes := "load-in 17:00"

	e, positions, err := f.events.Create(ctx, f.manager.ID, EventInput{
		Date:  mustDate(t, "2027-06-01"),
		Venue: " Main Hall ",
		Time:  "20:00",
		Name:  "Summer Opener",
		Notes: &notes,
		Positions: []PositionInput{
			{Role: "Drums"},
			{Role: "Monitor Engineer", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventUnfilled, e.Status)
	assert.Equal(t, "Main Hall", e.Venue)
	assert.Equal(t, f.manager.ID, e.CreatedBy)
	require.Len(t, positions, 2)
	assert.Equal(t, 1, positions[0].Quantity, "quantity defaults to one")
	assert.Equal(t, model.RoleMonitorEngineer, positions[1].Role)
	assert.Equal(t, 2, positions[1].Quantity)
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := func() EventInput {
		return EventInput{Date: mustDate(t, "2027-06-02"), Venue: "Hall", Time: "19:00", Name: "Gig"}
	}

	tests := []struct {
		name  string
		edit  func(*EventInput)
		field string
	}{
		{"missing date", func(in *EventInput) { in.Date = model.Date{} }, "date"},
		{"blank venue", func(in *EventInput) { in.Venue = "  " }, "venue"},
		{"missing time", func(in *EventInput) { in.Time = "" }, "time"},
		{"missing name", func(in *EventInput) { in.Name = "" }, "name"},
		{"unknown role", func(in *EventInput) { in.Positions = []PositionInput{{Role: "Tuba"}} }, "positions[0].role"},
		{"duplicate role", func(in *EventInput) {
			in.Positions = []PositionInput{{Role: "Keys"}, {Role: "Keys", Quantity: 2}}
		}, "positions[1].role"},
		{"negative quantity", func(in *EventInput) { in.Positions = []PositionInput{{Role: "Keys", Quantity: -1}} }, "positions[0].quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.edit(&in)
			_, _, err := f.events.Create(ctx, f.manager.ID, in)
			se := requireKind(t, err, KindValidation)
			require.NotEmpty(t, se.Fields)
			assert.Equal(t, tt.field, se.Fields[0].Field)
		})
	}

	events, err := f.events.List(ctx, model.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetEventDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	ev := f.event(t, "2027-06-03", PositionInput{Role: "Guitar"}, PositionInput{Role: "Bass"})
	f.available(t, alice, "2027-06-03", true)
	f.propose(t, ev, alice, model.RoleGuitar)

	detail, err := f.events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, detail.Event.ID)
	assert.Len(t, detail.Positions, 2)
	require.Len(t, detail.Bookings, 1)
	assert.Equal(t, "Alice", detail.Bookings[0].Name)

	_, err = f.events.Get(ctx, 999)
	requireKind(t, err, KindNotFound)
}

func TestListEventsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	c := f.event(t, "2027-07-03", PositionInput{Role: "Guitar"})
	a := f.event(t, "2027-07-01")
	b := f.event(t, "2027-07-02")
	f.available(t, alice, "2027-07-03", true)
	bk := f.propose(t, c, alice, model.RoleGuitar)
	_, err := f.engine.RespondToBooking(ctx, bk.ID, alice.ID, Accept)
	require.NoError(t, err)

	all, err := f.events.List(ctx, model.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{a.ID, b.ID, c.ID}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	ranged, err := f.events.List(ctx, model.EventFilter{StartDate: mustDate(t, "2027-07-02"), EndDate: mustDate(t, "2027-07-02")})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, b.ID, ranged[0].ID)

	confirmed, err := f.events.List(ctx, model.EventFilter{Statuses: []model.EventStatus{model.EventConfirmed}})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, c.ID, confirmed[0].ID)
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, "2027-08-01", PositionInput{Role: "Horn"})

	updated, err := f.events.Update(ctx, ev.ID, EventInput{
		Date: mustDate(t, "2027-08-02"), Venue: "Annex", Time: "21:00", Name: "Moved Gig",
	})
	require.NoError(t, err)
	assert.Equal(t, "2027-08-02", updated.Date.String())
	assert.Equal(t, "Annex", updated.Venue)
	assert.Equal(t, model.EventUnfilled, updated.Status, "empty status keeps the current one")

	_, err = f.events.Update(ctx, ev.ID, EventInput{
		Date: ev.Date, Venue: "Annex", Time: "21:00", Name: "Moved Gig", Status: "cancelled",
	})
	se := requireKind(t, err, KindValidation)
	assert.Equal(t, "status", se.Fields[0].Field)

	_, err = f.events.Update(ctx, 999, EventInput{Date: ev.Date, Venue: "x", Time: "x", Name: "x"})
	requireKind(t, err, KindNotFound)
}

func TestDeleteEventCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	ev := f.event(t, "2027-09-01", PositionInput{Role: "Guitar"})
	f.available(t, alice, "2027-09-01", true)
	b := f.propose(t, ev, alice, model.RoleGuitar)

	deleted, err := f.events.Delete(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, deleted.ID)

	_, err = f.store.GetBooking(ctx, b.ID)
	assert.Error(t, err)
	mine, err := f.engine.ListMyBookings(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, mine.Pending)

	_, err = f.events.Delete(ctx, ev.ID)
	requireKind(t, err, KindNotFound)
}

func TestRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, "2027-10-01", PositionInput{Role: "Vocal"}, PositionInput{Role: "Bass"})
	vi := f.musician(t, "Vi", model.RoleVocal)
	bo := f.musician(t, "Bo", model.RoleBass)
	f.available(t, vi, "2027-10-01", true)
	f.available(t, bo, "2027-10-01", true)
	f.propose(t, ev, vi, model.RoleVocal)
	f.propose(t, ev, bo, model.RoleBass)

	roster, err := f.events.Roster(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, roster.Team, 2)
	assert.Equal(t, model.RoleBass, roster.Team[0].Role, "team is ordered by role")
	assert.Equal(t, model.RoleVocal, roster.Team[1].Role)

	_, err = f.events.Roster(ctx, 999)
	requireKind(t, err, KindNotFound)
}
