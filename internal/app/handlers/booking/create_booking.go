package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ereft/internal/app/commands"
	"ereft/internal/app/lease"
	"ereft/internal/app/middleware"
	"ereft/internal/app/outbox"
	"ereft/internal/app/uow"
	domainbooking "ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/events"
)

const createBookingKey = "booking.create"

var ErrUnitOfWorkFactoryRequired = errors.New("booking: unit of work factory required")

type CreateBookingCommand struct {
	CommandID       string
	PropertyID      string
	Guest           domainbooking.Guest
	CheckIn         dates.Date
	CheckOut        dates.Date
	Message         string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ManagesOwnTransaction() bool { return true }

type CreateBookingResult struct {
	Booking *domainbooking.Booking
}

// CreateBookingHandler runs the whole create flow under the property lease so
// the availability check and the calendar write are one critical section.
type CreateBookingHandler struct {
	UoWFactory  uow.Factory
	Lease       lease.Service
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	HorizonDays int
	Clock       func() time.Time
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
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

	stay := dates.Range{CheckIn: cmd.CheckIn, CheckOut: cmd.CheckOut}
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:          domainbooking.ID(cmd.CommandID),
		Property:    prop,
		Guest:       cmd.Guest,
		Stay:        stay,
		Message:     cmd.Message,
		Now:         now,
		HorizonDays: h.HorizonDays,
	})
	if err != nil {
		return nil, err
	}

	resolver := calendar.Resolver{Entries: unit.Calendar(), Rules: unit.Rules()}
	today := dates.Today(now)
	ok, unavailable, err := resolver.IsBookable(ctx, prop, stay, today)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := h.record(ctx, calendar.NewOverbookingPrevented(prop.ID, stay, now)); err != nil {
			return nil, err
		}
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		return nil, &domainbooking.DatesUnavailableError{Dates: unavailable}
	}

	if b.InstantBooking {
		if err := b.Confirm(now); err != nil {
			return nil, err
		}
		if err := lockStayDates(ctx, unit.Calendar(), b, now); err != nil {
			return nil, err
		}
		b.Record(calendar.NewDatesLocked(b.PropertyID, string(b.ID), b.Stay, now))
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

	return &CreateBookingResult{Booking: b}, nil
}

func (h *CreateBookingHandler) record(ctx context.Context, ev events.DomainEvent) error {
	return outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev})
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

// lockStayDates writes one booked entry per night, tagged with the booking's
// origin so cancellation can find exactly these entries later.
func lockStayDates(ctx context.Context, store calendar.Store, b *domainbooking.Booking, now time.Time) error {
	origin := calendar.BookingOrigin(string(b.ID))
	notes := fmt.Sprintf("Booked by %s", b.Guest.Name)
	for _, night := range b.Stay.NightDates() {
		entry := calendar.Entry{
			PropertyID: b.PropertyID,
			Date:       night,
			Status:     calendar.StatusBooked,
			Origin:     origin,
			Notes:      notes,
			UpdatedAt:  now,
		}
		if _, err := store.Upsert(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
var _ middleware.SelfManaged = CreateBookingCommand{}
