package availability

import (
	"context"

	"ereft/internal/app/commands"
	"ereft/internal/app/lease"
	"ereft/internal/app/middleware"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

const removeCalendarDateKey = "availability.remove_date"

type RemoveCalendarDateCommand struct {
	PropertyID string
	Date       dates.Date
	Principal  access.Principal
}

func (c RemoveCalendarDateCommand) Key() string { return removeCalendarDateKey }

func (c RemoveCalendarDateCommand) ManagesOwnTransaction() bool { return true }

// RemoveCalendarDateHandler deletes one owner override, returning the date to
// rule or default resolution. Booking-held dates cannot be removed this way;
// cancelling the booking is the only path that releases them.
type RemoveCalendarDateHandler struct {
	UoWFactory uow.Factory
	Lease      lease.Service
	Gate       access.Gate
}

func (h *RemoveCalendarDateHandler) Handle(ctx context.Context, cmd RemoveCalendarDateCommand) (struct{}, error) {
	var zero struct{}
	if h.UoWFactory == nil {
		return zero, ErrUnitOfWorkFactoryRequired
	}

	release, err := h.Lease.Acquire(ctx, cmd.PropertyID)
	if err != nil {
		return zero, err
	}
	defer release()

	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return zero, err
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
		return zero, err
	}
	if err := h.Gate.RequireManage(cmd.Principal, prop); err != nil {
		return zero, err
	}

	existing, err := unit.Calendar().Get(ctx, prop.ID, cmd.Date)
	if err != nil {
		return zero, err
	}
	if existing.Origin.IsBooking() {
		return zero, calendar.ErrEntryLocked
	}

	if err := unit.Calendar().Delete(ctx, prop.ID, cmd.Date); err != nil {
		return zero, err
	}

	if err := unit.Commit(ctx); err != nil {
		return zero, err
	}
	committed = true

	return zero, nil
}

var _ commands.Handler[RemoveCalendarDateCommand, struct{}] = (*RemoveCalendarDateHandler)(nil)
var _ middleware.SelfManaged = RemoveCalendarDateCommand{}
