package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crew-booking/internal/model"
)

func TestListOpenNeeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.musician(t, "Alice", model.RoleGuitar)
	gus := f.musician(t, "Gus", model.RoleGuitar)
	gia := f.musician(t, "Gia", model.RoleGuitar)
	dan := f.musician(t, "Dan", model.RoleDrums)
	sam := f.person(t, "Sam", model.UserTypeSoundEngineer, model.RoleFOHEngineer)

	later := f.event(t, "2027-01-20", PositionInput{Role: "Drums"})
	gig := f.event(t, "2027-01-10",
		PositionInput{Role: "Guitar", Quantity: 2},
		PositionInput{Role: "FOH Engineer"},
	)
	done := f.event(t, "2027-01-05", PositionInput{Role: "Drums"})

	for _, m := range []*model.Person{alice, gus, sam} {
		f.available(t, m, "2027-01-10", true)
	}
	f.available(t, gia, "2027-01-10", false)
	f.available(t, dan, "2027-01-05", true)
	f.available(t, dan, "2027-01-20", true)

	booked := f.propose(t, gig, alice, model.RoleGuitar)
	b := f.propose(t, done, dan, model.RoleDrums)
	_, err := f.engine.RespondToBooking(ctx, b.ID, dan.ID, Accept)
	require.NoError(t, err)

	needs, err := f.needs.ListOpenNeeds(ctx)
	require.NoError(t, err)
	require.Len(t, needs, 2, "confirmed events are not open")
	assert.Equal(t, gig.ID, needs[0].ID, "earliest first")
	assert.Equal(t, later.ID, needs[1].ID)

	gigNeeds := needs[0]
	require.Len(t, gigNeeds.Positions, 2)
	guitar := gigNeeds.Positions[0]
	assert.Equal(t, model.RoleGuitar, guitar.Role)
	assert.Equal(t, 2, guitar.QuantityNeeded)
	assert.Equal(t, 1, guitar.BookedCount)
	assert.Equal(t, 1, guitar.RemainingNeeded)
	require.Len(t, guitar.AvailablePeople, 1, "booked and unavailable people are excluded")
	assert.Equal(t, gus.ID, guitar.AvailablePeople[0].ID)

	foh := gigNeeds.Positions[1]
	assert.Equal(t, 0, foh.BookedCount)
	require.Len(t, foh.AvailablePeople, 1)
	assert.Equal(t, sam.ID, foh.AvailablePeople[0].ID)

	require.Len(t, gigNeeds.Bookings, 1)
	assert.Equal(t, booked.ID, gigNeeds.Bookings[0].ID)
	assert.Equal(t, "Alice", gigNeeds.Bookings[0].Name)

	drums := needs[1].Positions[0]
	require.Len(t, drums.AvailablePeople, 1)
	assert.Equal(t, dan.ID, drums.AvailablePeople[0].ID, "a booking on another event does not exclude")
}

func TestListOpenNeedsCountsDeclinedBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleKeys)
	ev := f.event(t, "2027-02-01", PositionInput{Role: "Keys"})
	f.available(t, alice, "2027-02-01", true)
	b := f.propose(t, ev, alice, model.RoleKeys)
	_, err := f.engine.RespondToBooking(ctx, b.ID, alice.ID, Decline)
	require.NoError(t, err)

	needs, err := f.needs.ListOpenNeeds(ctx)
	require.NoError(t, err)
	require.Len(t, needs, 1)
	keys := needs[0].Positions[0]
	assert.Equal(t, 1, keys.BookedCount)
	assert.Equal(t, 0, keys.RemainingNeeded)
	assert.Empty(t, keys.AvailablePeople, "a declined person is still booked on the event")
}

func TestListOpenNeedsEmpty(t *testing.T) {
	f := newFixture(t)
	needs, err := f.needs.ListOpenNeeds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, needs)
}
