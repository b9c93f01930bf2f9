package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ereft/internal/app/uow"
	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo sessions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	PropertyRepo property.Repository
	Entries      calendar.Store
	RuleRepo     calendar.RuleRepository
	BookingRepo  booking.Repository
}

// Begin starts a MongoDB session and transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(f.DB.ReadConcern()).
		SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:    session,
		properties: f.PropertyRepo,
		entries:    f.Entries,
		rules:      f.RuleRepo,
		bookings:   f.BookingRepo,
	}, nil
}

type Unit struct {
	session mongo.Session

	properties property.Repository
	entries    calendar.Store
	rules      calendar.RuleRepository
	bookings   booking.Repository
}

func (u *Unit) Properties() property.Repository { return u.properties }
func (u *Unit) Calendar() calendar.Store        { return u.entries }
func (u *Unit) Rules() calendar.RuleRepository  { return u.rules }
func (u *Unit) Bookings() booking.Repository    { return u.bookings }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext makes the session visible to repositories reached through this
// unit, so their reads and writes join the transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.Factory = Factory{}
