package availability

import (
	"context"
	"time"

	"ereft/internal/app/dto"
	"ereft/internal/app/queries"
	"ereft/internal/domain/access"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
)

const listCalendarKey = "availability.list"

// defaultWindowDays bounds the calendar view when the caller sends no range.
const defaultWindowDays = 90

type ListCalendarQuery struct {
	PropertyID string
	From       *dates.Date
	To         *dates.Date
	Principal  access.Principal
}

func (q ListCalendarQuery) Key() string { return listCalendarKey }

// ListCalendarHandler resolves the effective status of every date in the
// requested window. Anyone may read; notes and origins are only shown to the
// property manager.
type ListCalendarHandler struct {
	Properties property.Repository
	Entries    calendar.Store
	Rules      calendar.RuleRepository
	Gate       access.Gate
	Clock      func() time.Time
}

func (h *ListCalendarHandler) Handle(ctx context.Context, q ListCalendarQuery) ([]dto.DayStatus, error) {
	prop, err := h.Properties.ByID(ctx, property.ID(q.PropertyID))
	if err != nil {
		return nil, err
	}

	today := dates.Today(h.now())
	from := today
	if q.From != nil {
		from = *q.From
	}
	to := from.AddDays(defaultWindowDays - 1)
	if q.To != nil {
		to = *q.To
	}
	if to.Before(from) {
		return nil, fault.Validationf("to %s is before from %s", to, from)
	}

	resolver := calendar.Resolver{Entries: h.Entries, Rules: h.Rules}
	resolved, err := resolver.ResolveRange(ctx, prop, from, to, today)
	if err != nil {
		return nil, err
	}

	redact := !h.Gate.CanManage(q.Principal, prop)
	return dto.DayStatusListFrom(resolved, redact), nil
}

func (h *ListCalendarHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

var _ queries.Handler[ListCalendarQuery, []dto.DayStatus] = (*ListCalendarHandler)(nil)
