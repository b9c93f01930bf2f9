package booking

import (
	"context"
	"time"

	"ereft/internal/app/commands"
	"ereft/internal/app/lease"
	"ereft/internal/app/middleware"
	"ereft/internal/app/outbox"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	domainbooking "ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/events"
)

const transitionBookingKey = "booking.transition"

type TransitionBookingCommand struct {
	BookingID string
	NewStatus domainbooking.Status
	Principal access.Principal
}

func (c TransitionBookingCommand) Key() string { return transitionBookingKey }

func (c TransitionBookingCommand) ManagesOwnTransaction() bool { return true }

type TransitionBookingResult struct {
	Booking *domainbooking.Booking
}

// TransitionBookingHandler drives the booking state machine. Confirmation
// re-checks availability and locks the nights in the same commit; cancellation
// releases exactly the entries the booking created.
type TransitionBookingHandler struct {
	UoWFactory uow.Factory
	Lease      lease.Service
	Gate       access.Gate
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (*TransitionBookingResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkFactoryRequired
	}
	now := h.now()

	propertyID, err := h.lookupPropertyID(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}

	release, err := h.Lease.Acquire(ctx, propertyID)
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

	b, err := unit.Bookings().ByID(ctx, domainbooking.ID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	prop, err := unit.Properties().ByID(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := h.authorize(cmd, b, prop); err != nil {
		return nil, err
	}

	if b.Status == cmd.NewStatus {
		return &TransitionBookingResult{Booking: b}, nil
	}

	wasConfirmed := b.Status == domainbooking.StatusConfirmed
	switch cmd.NewStatus {
	case domainbooking.StatusConfirmed:
		resolver := calendar.Resolver{Entries: unit.Calendar(), Rules: unit.Rules()}
		ok, unavailable, err := resolver.IsBookable(ctx, prop, b.Stay, dates.Today(now))
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := h.record(ctx, calendar.NewOverbookingPrevented(prop.ID, b.Stay, now)); err != nil {
				return nil, err
			}
			if err := unit.Commit(ctx); err != nil {
				return nil, err
			}
			committed = true
			return nil, &domainbooking.DatesUnavailableError{Dates: unavailable}
		}
		if err := b.Confirm(now); err != nil {
			return nil, err
		}
		if err := lockStayDates(ctx, unit.Calendar(), b, now); err != nil {
			return nil, err
		}
		b.Record(calendar.NewDatesLocked(b.PropertyID, string(b.ID), b.Stay, now))

	case domainbooking.StatusCancelled:
		if err := b.Cancel(now); err != nil {
			return nil, err
		}
		if wasConfirmed {
			origin := calendar.BookingOrigin(string(b.ID))
			if err := unit.Calendar().DeleteByOrigin(ctx, b.PropertyID, origin); err != nil {
				return nil, err
			}
			b.Record(calendar.NewDatesReleased(b.PropertyID, string(b.ID), b.Stay, now))
		}

	case domainbooking.StatusCompleted:
		if err := b.Complete(now); err != nil {
			return nil, err
		}

	default:
		return nil, domainbooking.ErrInvalidTransition
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	return &TransitionBookingResult{Booking: b}, nil
}

// authorize lets the property manager drive any transition; the guest who made
// the booking may only cancel it.
func (h *TransitionBookingHandler) authorize(cmd TransitionBookingCommand, b *domainbooking.Booking, prop *property.Property) error {
	manageErr := h.Gate.RequireManage(cmd.Principal, prop)
	if manageErr == nil {
		return nil
	}
	if cmd.NewStatus == domainbooking.StatusCancelled &&
		cmd.Principal.ID != "" && cmd.Principal.ID == b.Guest.UserID {
		return nil
	}
	return manageErr
}

// lookupPropertyID reads the booking outside the write transaction so the
// lease can be taken before the transaction opens.
func (h *TransitionBookingHandler) lookupPropertyID(ctx context.Context, id string) (string, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return "", err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	b, err := unit.Bookings().ByID(uow.Bind(ctx, unit), domainbooking.ID(id))
	if err != nil {
		return "", err
	}
	return string(b.PropertyID), nil
}

func (h *TransitionBookingHandler) record(ctx context.Context, ev events.DomainEvent) error {
	return outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev})
}

func (h *TransitionBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *TransitionBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[TransitionBookingCommand, *TransitionBookingResult] = (*TransitionBookingHandler)(nil)
var _ middleware.SelfManaged = TransitionBookingCommand{}
