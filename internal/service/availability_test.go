package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crew-booking/internal/model"
)

func TestSubmitUpsertsOneRecordPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	day := mustDate(t, "2027-03-01")

	note := "until 22:00"
	first, err := f.avail.Submit(ctx, alice.ID, day, true, &note)
	require.NoError(t, err)
	second, err := f.avail.Submit(ctx, alice.ID, day, false, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Available)
	assert.Nil(t, second.Notes)
	assert.True(t, second.SubmittedAt.After(first.SubmittedAt))

	entries, err := f.avail.List(ctx, model.AvailabilityFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Available)
	assert.Equal(t, "Alice", entries[0].Name)
}

func TestSubmitRequiresDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.avail.Submit(context.Background(), f.director.ID, model.Date{}, true, nil)
	requireKind(t, err, KindValidation)
}

func TestSubmitBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)

	dates := []model.Date{
		mustDate(t, "2027-03-02"),
		mustDate(t, "2027-03-03"),
		mustDate(t, "2027-03-02"),
		{},
	}
	res, err := f.avail.SubmitBulk(ctx, alice.ID, dates, true, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results, 2, "repeated dates are stored once")
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "invalid date", res.Failed[0].Error)

	entries, err := f.avail.List(ctx, model.AvailabilityFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = f.avail.SubmitBulk(ctx, alice.ID, nil, true, nil)
	requireKind(t, err, KindValidation)
}

func TestSubmitBulkKeepsAppliedDatesWhenOneFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// An unknown person makes every upsert fail in the store.
	res, err := f.avail.SubmitBulk(ctx, 9999, []model.Date{mustDate(t, "2027-03-04")}, true, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "2027-03-04", res.Failed[0].Date.String())

	alice := f.musician(t, "Alice", model.RoleGuitar)
	res, err = f.avail.SubmitBulk(ctx, alice.ID, []model.Date{mustDate(t, "2027-03-04"), {}, mustDate(t, "2027-03-05")}, true, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
	assert.Len(t, res.Failed, 1)
}

func TestDeleteAvailabilityIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	bob := f.musician(t, "Bob", model.RoleDrums)
	a, err := f.avail.Submit(ctx, alice.ID, mustDate(t, "2027-03-06"), true, nil)
	require.NoError(t, err)

	_, err = f.avail.Delete(ctx, a.ID, bob.ID)
	se := requireKind(t, err, KindNotFound)
	assert.Equal(t, "Availability not found or unauthorized", se.Message)

	_, err = f.avail.Delete(ctx, 12345, alice.ID)
	se = requireKind(t, err, KindNotFound)
	assert.Equal(t, "Availability not found or unauthorized", se.Message)

	deleted, err := f.avail.Delete(ctx, a.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	available, err := f.store.IsAvailable(ctx, alice.ID, mustDate(t, "2027-03-06"))
	require.NoError(t, err)
	assert.False(t, available)
}

func TestListAvailabilityFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.musician(t, "Alice", model.RoleGuitar)
	bob := f.musician(t, "Bob", model.RoleDrums)
	f.available(t, bob, "2027-04-03", true)
	f.available(t, alice, "2027-04-01", true)
	f.available(t, alice, "2027-04-03", false)
	f.available(t, bob, "2027-04-05", true)

	all, err := f.avail.List(ctx, model.AvailabilityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2027-04-01", all[0].Date.String())
	assert.Equal(t, "Alice", all[1].Name, "same day ordered by name")
	assert.Equal(t, "Bob", all[2].Name)

	onDay, err := f.avail.List(ctx, model.AvailabilityFilter{Date: mustDate(t, "2027-04-03")})
	require.NoError(t, err)
	assert.Len(t, onDay, 2)

	ranged, err := f.avail.List(ctx, model.AvailabilityFilter{
		StartDate: mustDate(t, "2027-04-02"),
		EndDate:   mustDate(t, "2027-04-04"),
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	bobs, err := f.avail.List(ctx, model.AvailabilityFilter{UserID: bob.ID, StartDate: mustDate(t, "2027-04-04")})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "2027-04-05", bobs[0].Date.String())
}
