package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/money"
	"ereft/internal/infra/storage/memory"
)

var ctx = context.Background()

func entry(id string, date dates.Date, status calendar.Status, origin calendar.Origin) calendar.Entry {
	return calendar.Entry{PropertyID: property.ID(id), Date: date, Status: status, Origin: origin}
}

func TestPropertyRepository_RoundTrip(t *testing.T) {
	repo := memory.NewPropertyRepository()

	_, err := repo.ByID(ctx, "missing")
	assert.ErrorIs(t, err, property.ErrNotFound)

	p := &property.Property{ID: "prop-1", OwnerID: "owner-1", NightlyPrice: money.Must(1000, "ETB")}
	require.NoError(t, repo.Save(ctx, p))

	loaded, err := repo.ByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", loaded.OwnerID)

	// Mutating the returned copy must not leak into the store.
	loaded.OwnerID = "hijacked"
	again, err := repo.ByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", again.OwnerID)

	require.NoError(t, repo.Delete(ctx, "prop-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "prop-1"), property.ErrNotFound)
}

func TestCalendarStore_UpsertReportsCreated(t *testing.T) {
	store := memory.NewCalendarStore()
	d := dates.New(2025, time.March, 10)

	created, err := store.Upsert(ctx, entry("prop-1", d, calendar.StatusBlocked, calendar.OwnerOrigin()))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Upsert(ctx, entry("prop-1", d, calendar.StatusAvailable, calendar.OwnerOrigin()))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "prop-1", d)
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusAvailable, got.Status)
}

func TestCalendarStore_RangeIsSortedAndBounded(t *testing.T) {
	store := memory.NewCalendarStore()
	for _, day := range []int{14, 10, 12, 20} {
		_, err := store.Upsert(ctx, entry("prop-1", dates.New(2025, time.March, day), calendar.StatusBlocked, calendar.OwnerOrigin()))
		require.NoError(t, err)
	}
	_, err := store.Upsert(ctx, entry("prop-2", dates.New(2025, time.March, 11), calendar.StatusBlocked, calendar.OwnerOrigin()))
	require.NoError(t, err)

	out, err := store.Range(ctx, "prop-1", dates.New(2025, time.March, 10), dates.New(2025, time.March, 15))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, dates.New(2025, time.March, 10), out[0].Date)
	assert.Equal(t, dates.New(2025, time.March, 12), out[1].Date)
	assert.Equal(t, dates.New(2025, time.March, 14), out[2].Date)
}

func TestCalendarStore_BulkUpsertCounts(t *testing.T) {
	store := memory.NewCalendarStore()
	d1 := dates.New(2025, time.March, 10)
	d2 := dates.New(2025, time.March, 11)

	batch := []calendar.Entry{
		{Date: d1, Status: calendar.StatusBlocked, Origin: calendar.OwnerOrigin()},
		{Date: d2, Status: calendar.StatusBlocked, Origin: calendar.OwnerOrigin()},
	}
	created, updated, err := store.BulkUpsert(ctx, "prop-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, updated)

	created, updated, err = store.BulkUpsert(ctx, "prop-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, updated)

	// Property id comes from the call, not the entry payload.
	got, err := store.Get(ctx, "prop-1", d1)
	require.NoError(t, err)
	assert.Equal(t, property.ID("prop-1"), got.PropertyID)
}

func TestCalendarStore_DeleteByOriginLeavesOwnerEntries(t *testing.T) {
	store := memory.NewCalendarStore()
	bookingNight := dates.New(2025, time.March, 10)
	ownerBlock := dates.New(2025, time.March, 20)

	_, err := store.Upsert(ctx, entry("prop-1", bookingNight, calendar.StatusBooked, calendar.BookingOrigin("bk-1")))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, entry("prop-1", ownerBlock, calendar.StatusBlocked, calendar.OwnerOrigin()))
	require.NoError(t, err)

	require.NoError(t, store.DeleteByOrigin(ctx, "prop-1", calendar.BookingOrigin("bk-1")))

	_, err = store.Get(ctx, "prop-1", bookingNight)
	assert.ErrorIs(t, err, calendar.ErrEntryNotFound)
	_, err = store.Get(ctx, "prop-1", ownerBlock)
	assert.NoError(t, err)
}

func TestCalendarStore_DeleteMissing(t *testing.T) {
	store := memory.NewCalendarStore()
	err := store.Delete(ctx, "prop-1", dates.New(2025, time.March, 10))
	assert.ErrorIs(t, err, calendar.ErrEntryNotFound)
}

func TestRuleRepository_ByPropertyOrdersByCreation(t *testing.T) {
	repo := memory.NewRuleRepository()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	pattern, err := calendar.NewWeekly([]int{0})
	require.NoError(t, err)

	newer := calendar.Rule{ID: "b", PropertyID: "prop-1", Pattern: pattern, Status: calendar.StatusBlocked, CreatedAt: base.Add(time.Hour), Active: true}
	older := calendar.Rule{ID: "a", PropertyID: "prop-1", Pattern: pattern, Status: calendar.StatusBlocked, CreatedAt: base, Active: true}
	other := calendar.Rule{ID: "c", PropertyID: "prop-2", Pattern: pattern, Status: calendar.StatusBlocked, CreatedAt: base, Active: true}
	for _, r := range []calendar.Rule{newer, older, other} {
		rule := r
		require.NoError(t, repo.Save(ctx, &rule))
	}

	rules, err := repo.ByProperty(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, calendar.RuleID("a"), rules[0].ID)
	assert.Equal(t, calendar.RuleID("b"), rules[1].ID)
}

func TestRuleRepository_DeleteAll(t *testing.T) {
	repo := memory.NewRuleRepository()
	pattern, err := calendar.NewMonthly(1)
	require.NoError(t, err)
	rule := calendar.Rule{ID: "a", PropertyID: "prop-1", Pattern: pattern, Status: calendar.StatusBlocked, Active: true}
	require.NoError(t, repo.Save(ctx, &rule))

	require.NoError(t, repo.DeleteAll(ctx, "prop-1"))
	_, err = repo.ByID(ctx, "a")
	assert.ErrorIs(t, err, calendar.ErrRuleNotFound)
}

func TestBookingRepository_SaveBumpsVersion(t *testing.T) {
	repo := memory.NewBookingRepository()
	b := &booking.Booking{ID: "bk-1", PropertyID: "prop-1", Status: booking.StatusPending}

	require.NoError(t, repo.Save(ctx, b))
	assert.Equal(t, int64(1), b.Version)
	require.NoError(t, repo.Save(ctx, b))
	assert.Equal(t, int64(2), b.Version)

	loaded, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Empty(t, loaded.PendingEvents())
}

func TestBookingRepository_ByIDReturnsCopy(t *testing.T) {
	repo := memory.NewBookingRepository()
	require.NoError(t, repo.Save(ctx, &booking.Booking{ID: "bk-1", PropertyID: "prop-1", Status: booking.StatusPending}))

	first, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	first.Status = booking.StatusCancelled

	second, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, second.Status)
}

func TestBookingRepository_ByProperty(t *testing.T) {
	repo := memory.NewBookingRepository()
	require.NoError(t, repo.Save(ctx, &booking.Booking{ID: "bk-2", PropertyID: "prop-1"}))
	require.NoError(t, repo.Save(ctx, &booking.Booking{ID: "bk-1", PropertyID: "prop-1"}))
	require.NoError(t, repo.Save(ctx, &booking.Booking{ID: "bk-3", PropertyID: "prop-2"}))

	list, err := repo.ByProperty(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, booking.ID("bk-1"), list[0].ID)
	assert.Equal(t, booking.ID("bk-2"), list[1].ID)

	_, err = repo.ByID(ctx, "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}
