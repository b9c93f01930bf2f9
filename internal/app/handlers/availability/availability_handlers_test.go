package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ereft/internal/app/dto"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
	"ereft/internal/domain/shared/money"
	"ereft/internal/infra/storage/memory"

	availabilityapp "ereft/internal/app/handlers/availability"
)

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

var owner = access.Principal{ID: "owner-1"}

type fixture struct {
	properties *memory.PropertyRepository
	entries    *memory.CalendarStore
	rules      *memory.RuleRepository
	bookings   *memory.BookingRepository
	leases     *memory.Lease
	factory    memory.Factory
	gate       access.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		properties: memory.NewPropertyRepository(),
		entries:    memory.NewCalendarStore(),
		rules:      memory.NewRuleRepository(),
		bookings:   memory.NewBookingRepository(),
		leases:     memory.NewLease(50 * time.Millisecond),
		gate:       access.NewGate(nil),
	}
	f.factory = memory.Factory{
		PropertyRepo: f.properties,
		Entries:      f.entries,
		RuleRepo:     f.rules,
		BookingRepo:  f.bookings,
	}
	require.NoError(t, f.properties.Save(context.Background(), &property.Property{
		ID:           "prop-1",
		OwnerID:      "owner-1",
		Title:        "Lakeside Cabin",
		NightlyPrice: money.Must(150000, "ETB"),
	}))
	return f
}

// boundCtx mimics the transaction middleware for handlers that expect a unit
// of work on the context.
func (f *fixture) boundCtx(t *testing.T) context.Context {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return uow.Bind(context.Background(), unit)
}

func TestBulkUpsert_AppliesCleanItemsAndReportsBadOnes(t *testing.T) {
	f := newFixture(t)
	_, err := f.entries.Upsert(context.Background(), calendar.Entry{
		PropertyID: "prop-1",
		Date:       dates.New(2025, time.March, 15),
		Status:     calendar.StatusBooked,
		Origin:     calendar.BookingOrigin("bk-1"),
	})
	require.NoError(t, err)

	h := &availabilityapp.BulkUpsertCalendarHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate, Clock: clock}
	result, err := h.Handle(context.Background(), availabilityapp.BulkUpsertCalendarCommand{
		PropertyID: "prop-1",
		Principal:  owner,
		Items: []availabilityapp.CalendarItemInput{
			{Date: "2025-03-10", Status: "blocked", Notes: "painting"},
			{Date: "2025-03-11", Status: "blocked"},
			{Date: "2025-03-11", Status: "available"},
			{Date: "2025-03-32", Status: "blocked"},
			{Date: "2025-03-12", Status: "closed"},
			{Date: "2025-03-15", Status: "available"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, dto.BulkItemError{Date: "2025-03-11", Reason: "duplicate date in batch"}, result.Errors[0])
	assert.Equal(t, dto.BulkItemError{Date: "2025-03-32", Reason: "invalid date"}, result.Errors[1])
	assert.Equal(t, dto.BulkItemError{Date: "2025-03-12", Reason: "invalid status"}, result.Errors[2])
	assert.Equal(t, dto.BulkItemError{Date: "2025-03-15", Reason: "date is locked by a booking"}, result.Errors[3])

	got, err := f.entries.Get(context.Background(), "prop-1", dates.New(2025, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusBlocked, got.Status)
	assert.Equal(t, calendar.OwnerOrigin(), got.Origin)
	assert.Equal(t, "painting", got.Notes)

	// Booking-held entry is untouched.
	held, err := f.entries.Get(context.Background(), "prop-1", dates.New(2025, time.March, 15))
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusBooked, held.Status)
}

func TestBulkUpsert_SecondRunCountsUpdates(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.BulkUpsertCalendarHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate, Clock: clock}
	items := []availabilityapp.CalendarItemInput{
		{Date: "2025-03-10", Status: "blocked"},
		{Date: "2025-03-11", Status: "blocked"},
	}
	cmd := availabilityapp.BulkUpsertCalendarCommand{PropertyID: "prop-1", Principal: owner, Items: items}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Empty(t, second.Errors)
}

func TestBulkUpsert_EmptyBatchRejected(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.BulkUpsertCalendarHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate, Clock: clock}
	_, err := h.Handle(context.Background(), availabilityapp.BulkUpsertCalendarCommand{PropertyID: "prop-1", Principal: owner})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestBulkUpsert_Authorization(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.BulkUpsertCalendarHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate, Clock: clock}
	items := []availabilityapp.CalendarItemInput{{Date: "2025-03-10", Status: "blocked"}}

	_, err := h.Handle(context.Background(), availabilityapp.BulkUpsertCalendarCommand{PropertyID: "prop-1", Items: items})
	assert.ErrorIs(t, err, access.ErrUnauthenticated)

	_, err = h.Handle(context.Background(), availabilityapp.BulkUpsertCalendarCommand{PropertyID: "prop-1", Items: items, Principal: access.Principal{ID: "guest-1"}})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestSetDate_CreateThenUpdate(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.SetCalendarDateHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate, Clock: clock}
	cmd := availabilityapp.SetCalendarDateCommand{
		PropertyID: "prop-1",
		Date:       dates.New(2025, time.March, 10),
		Status:     calendar.StatusBlocked,
		Notes:      "family visit",
		Principal:  owner,
	}

	result, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "blocked", result.Entry.Status)
	assert.Equal(t, "owner_override", result.Entry.Origin)

	cmd.Status = calendar.StatusAvailable
	result, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "available", result.Entry.Status)
}

func TestSetDate_BookingLockedDateRejected(t *testing.T) {
	f := newFixture(t)
	night := dates.New(2025, time.March, 10)
	_, err := f.entries.Upsert(context.Background(), calendar.Entry{
		PropertyID: "prop-1", Date: night, Status: calendar.StatusBooked, Origin: calendar.BookingOrigin("bk-1"),
	})
	require.NoError(t, err)

	h := &availabilityapp.SetCalendarDateHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate, Clock: clock}
	_, err = h.Handle(context.Background(), availabilityapp.SetCalendarDateCommand{
		PropertyID: "prop-1", Date: night, Status: calendar.StatusAvailable, Principal: owner,
	})
	assert.ErrorIs(t, err, calendar.ErrEntryLocked)
}

func TestRemoveDate(t *testing.T) {
	f := newFixture(t)
	night := dates.New(2025, time.March, 10)
	_, err := f.entries.Upsert(context.Background(), calendar.Entry{
		PropertyID: "prop-1", Date: night, Status: calendar.StatusBlocked, Origin: calendar.OwnerOrigin(),
	})
	require.NoError(t, err)

	h := &availabilityapp.RemoveCalendarDateHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate}
	_, err = h.Handle(context.Background(), availabilityapp.RemoveCalendarDateCommand{PropertyID: "prop-1", Date: night, Principal: owner})
	require.NoError(t, err)

	_, err = f.entries.Get(context.Background(), "prop-1", night)
	assert.ErrorIs(t, err, calendar.ErrEntryNotFound)

	_, err = h.Handle(context.Background(), availabilityapp.RemoveCalendarDateCommand{PropertyID: "prop-1", Date: night, Principal: owner})
	assert.ErrorIs(t, err, calendar.ErrEntryNotFound)
}

func TestRemoveDate_BookingLockedDateRejected(t *testing.T) {
	f := newFixture(t)
	night := dates.New(2025, time.March, 10)
	_, err := f.entries.Upsert(context.Background(), calendar.Entry{
		PropertyID: "prop-1", Date: night, Status: calendar.StatusBooked, Origin: calendar.BookingOrigin("bk-1"),
	})
	require.NoError(t, err)

	h := &availabilityapp.RemoveCalendarDateHandler{UoWFactory: f.factory, Lease: f.leases, Gate: f.gate}
	_, err = h.Handle(context.Background(), availabilityapp.RemoveCalendarDateCommand{PropertyID: "prop-1", Date: night, Principal: owner})
	assert.ErrorIs(t, err, calendar.ErrEntryLocked)
}

func TestCreateRule_WeeklyPersistsActive(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.CreateRuleHandler{Gate: f.gate, Clock: clock}

	rule, err := h.Handle(f.boundCtx(t), availabilityapp.CreateRuleCommand{
		RuleID:     "rule-1",
		PropertyID: "prop-1",
		RuleType:   "weekly",
		Status:     "blocked",
		DaysOfWeek: []int{5, 6},
		StartDate:  dates.New(2025, time.March, 1),
		Notes:      "no weekend checkouts",
		Principal:  owner,
	})
	require.NoError(t, err)
	assert.Equal(t, "weekly", rule.RuleType)
	assert.Equal(t, []int{5, 6}, rule.DaysOfWeek)
	assert.True(t, rule.IsActive)

	stored, err := f.rules.ByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.Equal(t, calendar.StatusBlocked, stored.Status)
}

func TestCreateRule_Validation(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.CreateRuleHandler{Gate: f.gate, Clock: clock}
	base := availabilityapp.CreateRuleCommand{
		RuleID:     "rule-1",
		PropertyID: "prop-1",
		StartDate:  dates.New(2025, time.March, 1),
		Principal:  owner,
	}

	bad := base
	bad.RuleType = "daily"
	bad.Status = "blocked"
	_, err := h.Handle(f.boundCtx(t), bad)
	assert.ErrorIs(t, err, fault.ErrValidation)

	bad = base
	bad.RuleType = "weekly"
	bad.Status = "closed"
	bad.DaysOfWeek = []int{0}
	_, err = h.Handle(f.boundCtx(t), bad)
	assert.ErrorIs(t, err, fault.ErrValidation)

	bad = base
	bad.RuleType = "monthly"
	bad.Status = "blocked"
	bad.DayOfMonth = 0
	_, err = h.Handle(f.boundCtx(t), bad)
	assert.Error(t, err)

	bad = base
	bad.RuleType = "yearly"
	bad.Status = "blocked"
	bad.Month = 9
	bad.DayOfMonth = 11
	end := dates.New(2025, time.February, 1)
	bad.EndDate = &end
	_, err = h.Handle(f.boundCtx(t), bad)
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestUpdateRule_DeactivateAndClearEnd(t *testing.T) {
	f := newFixture(t)
	create := &availabilityapp.CreateRuleHandler{Gate: f.gate, Clock: clock}
	end := dates.New(2025, time.June, 30)
	_, err := create.Handle(f.boundCtx(t), availabilityapp.CreateRuleCommand{
		RuleID:     "rule-1",
		PropertyID: "prop-1",
		RuleType:   "monthly",
		Status:     "blocked",
		DayOfMonth: 1,
		StartDate:  dates.New(2025, time.March, 1),
		EndDate:    &end,
		Principal:  owner,
	})
	require.NoError(t, err)

	update := &availabilityapp.UpdateRuleHandler{Gate: f.gate}
	inactive := false
	rule, err := update.Handle(f.boundCtx(t), availabilityapp.UpdateRuleCommand{
		RuleID:    "rule-1",
		Active:    &inactive,
		ClearEnd:  true,
		Principal: owner,
	})
	require.NoError(t, err)
	assert.False(t, rule.IsActive)
	assert.Empty(t, rule.EndDate)

	stored, err := f.rules.ByID(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Nil(t, stored.End)
}

func TestDeleteRule(t *testing.T) {
	f := newFixture(t)
	create := &availabilityapp.CreateRuleHandler{Gate: f.gate, Clock: clock}
	_, err := create.Handle(f.boundCtx(t), availabilityapp.CreateRuleCommand{
		RuleID:     "rule-1",
		PropertyID: "prop-1",
		RuleType:   "monthly",
		Status:     "blocked",
		DayOfMonth: 1,
		StartDate:  dates.New(2025, time.March, 1),
		Principal:  owner,
	})
	require.NoError(t, err)

	del := &availabilityapp.DeleteRuleHandler{Gate: f.gate}
	_, err = del.Handle(f.boundCtx(t), availabilityapp.DeleteRuleCommand{RuleID: "rule-1", Principal: owner})
	require.NoError(t, err)

	_, err = f.rules.ByID(context.Background(), "rule-1")
	assert.ErrorIs(t, err, calendar.ErrRuleNotFound)

	_, err = del.Handle(f.boundCtx(t), availabilityapp.DeleteRuleCommand{RuleID: "rule-1", Principal: owner})
	assert.ErrorIs(t, err, calendar.ErrRuleNotFound)
}

func TestListCalendar_DefaultWindowAndRedaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.entries.Upsert(context.Background(), calendar.Entry{
		PropertyID: "prop-1",
		Date:       dates.New(2025, time.March, 10),
		Status:     calendar.StatusBlocked,
		Origin:     calendar.OwnerOrigin(),
		Notes:      "family visit",
	})
	require.NoError(t, err)

	h := &availabilityapp.ListCalendarHandler{
		Properties: f.properties,
		Entries:    f.entries,
		Rules:      f.rules,
		Gate:       f.gate,
		Clock:      clock,
	}

	days, err := h.Handle(context.Background(), availabilityapp.ListCalendarQuery{PropertyID: "prop-1", Principal: owner})
	require.NoError(t, err)
	require.Len(t, days, 90, "default window is 90 days from today")
	assert.Equal(t, "2025-03-01", days[0].Date)
	assert.Equal(t, "2025-05-29", days[89].Date)

	assert.Equal(t, "blocked", days[9].Status)
	assert.Equal(t, "family visit", days[9].Notes)
	assert.Equal(t, "owner_override", days[9].Origin)

	// Anonymous readers get the status but not the owner's notes.
	anon, err := h.Handle(context.Background(), availabilityapp.ListCalendarQuery{PropertyID: "prop-1"})
	require.NoError(t, err)
	assert.Equal(t, "blocked", anon[9].Status)
	assert.Empty(t, anon[9].Notes)
	assert.Empty(t, anon[9].Origin)
}

func TestListCalendar_ExplicitRangeAndRulePrecedence(t *testing.T) {
	f := newFixture(t)
	create := &availabilityapp.CreateRuleHandler{Gate: f.gate, Clock: clock}
	_, err := create.Handle(f.boundCtx(t), availabilityapp.CreateRuleCommand{
		RuleID:     "rule-1",
		PropertyID: "prop-1",
		RuleType:   "weekly",
		Status:     "blocked",
		DaysOfWeek: []int{0},
		StartDate:  dates.New(2025, time.March, 1),
		Principal:  owner,
	})
	require.NoError(t, err)

	h := &availabilityapp.ListCalendarHandler{
		Properties: f.properties,
		Entries:    f.entries,
		Rules:      f.rules,
		Gate:       f.gate,
		Clock:      clock,
	}
	from := dates.New(2025, time.March, 3)
	to := dates.New(2025, time.March, 4)
	days, err := h.Handle(context.Background(), availabilityapp.ListCalendarQuery{
		PropertyID: "prop-1", From: &from, To: &to, Principal: owner,
	})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "blocked", days[0].Status) // Monday rule
	assert.Equal(t, "available", days[1].Status)
}

func TestListCalendar_InvertedRangeRejected(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.ListCalendarHandler{
		Properties: f.properties,
		Entries:    f.entries,
		Rules:      f.rules,
		Gate:       f.gate,
		Clock:      clock,
	}
	from := dates.New(2025, time.March, 10)
	to := dates.New(2025, time.March, 5)
	_, err := h.Handle(context.Background(), availabilityapp.ListCalendarQuery{
		PropertyID: "prop-1", From: &from, To: &to,
	})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestListRules_ManagerOnly(t *testing.T) {
	f := newFixture(t)
	h := &availabilityapp.ListRulesHandler{Properties: f.properties, Rules: f.rules, Gate: f.gate}

	_, err := h.Handle(context.Background(), availabilityapp.ListRulesQuery{PropertyID: "prop-1", Principal: access.Principal{ID: "guest-1"}})
	assert.ErrorIs(t, err, access.ErrForbidden)

	rules, err := h.Handle(context.Background(), availabilityapp.ListRulesQuery{PropertyID: "prop-1", Principal: owner})
	require.NoError(t, err)
	assert.Empty(t, rules)
}
