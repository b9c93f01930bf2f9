package availability

import (
	"context"
	"errors"
	"time"

	"ereft/internal/app/commands"
	"ereft/internal/app/dto"
	"ereft/internal/app/lease"
	"ereft/internal/app/middleware"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

const setCalendarDateKey = "availability.set_date"

type SetCalendarDateCommand struct {
	PropertyID string
	Date       dates.Date
	Status     calendar.Status
	Notes      string
	Principal  access.Principal
}

func (c SetCalendarDateCommand) Key() string { return setCalendarDateKey }

func (c SetCalendarDateCommand) ManagesOwnTransaction() bool { return true }

type SetCalendarDateResult struct {
	Entry   dto.CalendarEntry
	Created bool
}

// SetCalendarDateHandler writes one owner override. Dates held by a booking
// reject the write with ErrEntryLocked.
type SetCalendarDateHandler struct {
	UoWFactory uow.Factory
	Lease      lease.Service
	Gate       access.Gate
	Clock      func() time.Time
}

func (h *SetCalendarDateHandler) Handle(ctx context.Context, cmd SetCalendarDateCommand) (*SetCalendarDateResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkFactoryRequired
	}
	now := h.now()

	release, err := h.Lease.Acquire(ctx, cmd.PropertyID)
	if err != nil {
		return nil, err
	}
	defer release()

	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	prop, err := unit.Properties().ByID(ctx, property.ID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	if err := h.Gate.RequireManage(cmd.Principal, prop); err != nil {
		return nil, err
	}

	existing, err := unit.Calendar().Get(ctx, prop.ID, cmd.Date)
	switch {
	case err == nil && existing.Origin.IsBooking():
		return nil, calendar.ErrEntryLocked
	case err != nil && !errors.Is(err, calendar.ErrEntryNotFound):
		return nil, err
	}

	entry := calendar.Entry{
		PropertyID: prop.ID,
		Date:       cmd.Date,
		Status:     cmd.Status,
		Origin:     calendar.OwnerOrigin(),
		Notes:      cmd.Notes,
		UpdatedAt:  now,
	}
	created, err := unit.Calendar().Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	return &SetCalendarDateResult{Entry: dto.CalendarEntryFrom(entry), Created: created}, nil
}

func (h *SetCalendarDateHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[SetCalendarDateCommand, *SetCalendarDateResult] = (*SetCalendarDateHandler)(nil)
var _ middleware.SelfManaged = SetCalendarDateCommand{}
