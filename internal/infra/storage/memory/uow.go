package memory

import (
	"context"
	"errors"

	"ereft/internal/app/uow"
	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
)

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires the in-memory repositories into a unit-of-work boundary.
type Factory struct {
	PropertyRepo property.Repository
	Entries      calendar.Store
	RuleRepo     calendar.RuleRepository
	BookingRepo  booking.Repository
}

// Begin starts a lightweight transaction boundary. The stores apply writes
// immediately, so commit and rollback are bookkeeping only; the abstraction
// matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertyRepo == nil || f.Entries == nil || f.RuleRepo == nil || f.BookingRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		properties: f.PropertyRepo,
		entries:    f.Entries,
		rules:      f.RuleRepo,
		bookings:   f.BookingRepo,
	}, nil
}

// Unit is a uow.UnitOfWork backed by the in-memory stores.
type Unit struct {
	properties property.Repository
	entries    calendar.Store
	rules      calendar.RuleRepository
	bookings   booking.Repository
}

func (u *Unit) Properties() property.Repository    { return u.properties }
func (u *Unit) Calendar() calendar.Store           { return u.entries }
func (u *Unit) Rules() calendar.RuleRepository     { return u.rules }
func (u *Unit) Bookings() booking.Repository       { return u.bookings }
func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }

var _ uow.Factory = Factory{}
