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
	"ereft/internal/domain/shared/fault"
)

const bulkUpsertCalendarKey = "availability.bulk_upsert"

var ErrUnitOfWorkFactoryRequired = errors.New("availability: unit of work factory required")

// CalendarItemInput is one raw date entry from the bulk endpoint. Fields are
// kept as strings so a bad item yields a per-item error instead of failing the
// whole batch.
type CalendarItemInput struct {
	Date   string
	Status string
	Notes  string
}

type BulkUpsertCalendarCommand struct {
	PropertyID string
	Items      []CalendarItemInput
	Principal  access.Principal
}

func (c BulkUpsertCalendarCommand) Key() string { return bulkUpsertCalendarKey }

func (c BulkUpsertCalendarCommand) ManagesOwnTransaction() bool { return true }

// BulkUpsertCalendarHandler applies owner overrides in bulk. Items that fail
// validation or target a booking-locked date are reported per item; the clean
// rest commits in one atomic write.
type BulkUpsertCalendarHandler struct {
	UoWFactory uow.Factory
	Lease      lease.Service
	Gate       access.Gate
	Clock      func() time.Time
}

func (h *BulkUpsertCalendarHandler) Handle(ctx context.Context, cmd BulkUpsertCalendarCommand) (*dto.BulkUpsertResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkFactoryRequired
	}
	if len(cmd.Items) == 0 {
		return nil, fault.Validationf("at least one calendar item is required")
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

	result := &dto.BulkUpsertResult{}
	batch := make([]calendar.Entry, 0, len(cmd.Items))
	seen := make(map[dates.Date]bool, len(cmd.Items))
	for _, item := range cmd.Items {
		date, err := dates.Parse(item.Date)
		if err != nil {
			result.Errors = append(result.Errors, dto.BulkItemError{Date: item.Date, Reason: "invalid date"})
			continue
		}
		status, err := calendar.ParseStatus(item.Status)
		if err != nil {
			result.Errors = append(result.Errors, dto.BulkItemError{Date: item.Date, Reason: "invalid status"})
			continue
		}
		if seen[date] {
			result.Errors = append(result.Errors, dto.BulkItemError{Date: item.Date, Reason: "duplicate date in batch"})
			continue
		}
		seen[date] = true

		existing, err := unit.Calendar().Get(ctx, prop.ID, date)
		switch {
		case err == nil && existing.Origin.IsBooking():
			result.Errors = append(result.Errors, dto.BulkItemError{Date: item.Date, Reason: "date is locked by a booking"})
			continue
		case err != nil && !errors.Is(err, calendar.ErrEntryNotFound):
			return nil, err
		}

		batch = append(batch, calendar.Entry{
			PropertyID: prop.ID,
			Date:       date,
			Status:     status,
			Origin:     calendar.OwnerOrigin(),
			Notes:      item.Notes,
			UpdatedAt:  now,
		})
	}

	if len(batch) > 0 {
		created, updated, err := unit.Calendar().BulkUpsert(ctx, prop.ID, batch)
		if err != nil {
			return nil, err
		}
		result.Created = created
		result.Updated = updated
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	return result, nil
}

func (h *BulkUpsertCalendarHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[BulkUpsertCalendarCommand, *dto.BulkUpsertResult] = (*BulkUpsertCalendarHandler)(nil)
var _ middleware.SelfManaged = BulkUpsertCalendarCommand{}
