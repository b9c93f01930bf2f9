package uow

import (
	"context"

	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
)

// UnitOfWork coordinates repositories inside one transaction boundary so a
// booking row and its calendar locks commit together or not at all.
type UnitOfWork interface {
	Properties() property.Repository
	Calendar() calendar.Store
	Rules() calendar.RuleRepository
	Bookings() booking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
