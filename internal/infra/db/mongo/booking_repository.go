package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "ereft/internal/domain/booking"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
	"ereft/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbooking.ErrNotFound
		}
		return nil, fault.Transient(err)
	}
	return doc.toAggregate()
}

func (r *BookingRepository) ByProperty(ctx context.Context, id property.ID) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(id)}, opts)
	if err != nil {
		return nil, fault.Transient(err)
	}
	defer cur.Close(ctx)

	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := cur.Err(); err != nil {
		return nil, fault.Transient(err)
	}
	return out, nil
}

// Save uses the version field for optimistic concurrency; a miss means another
// writer got there first.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return fault.Transient(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) DeleteAll(ctx context.Context, id property.ID) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"property_id": string(id)}); err != nil {
		return fault.Transient(err)
	}
	return nil
}

type bookingDocument struct {
	ID             string     `bson:"_id"`
	PropertyID     string     `bson:"property_id"`
	GuestUserID    string     `bson:"guest_user_id,omitempty"`
	GuestName      string     `bson:"guest_name"`
	GuestEmail     string     `bson:"guest_email"`
	GuestPhone     string     `bson:"guest_phone"`
	CheckIn        string     `bson:"check_in"`
	CheckOut       string     `bson:"check_out"`
	Nights         int        `bson:"nights"`
	TotalPrice     int64      `bson:"total_price"`
	Currency       string     `bson:"currency"`
	Message        string     `bson:"message,omitempty"`
	Status         string     `bson:"status"`
	InstantBooking bool       `bson:"instant_booking"`
	CreatedAt      time.Time  `bson:"created_at"`
	ConfirmedAt    *time.Time `bson:"confirmed_at,omitempty"`
	CancelledAt    *time.Time `bson:"cancelled_at,omitempty"`
	Version        int64      `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:             string(b.ID),
		PropertyID:     string(b.PropertyID),
		GuestUserID:    b.Guest.UserID,
		GuestName:      b.Guest.Name,
		GuestEmail:     b.Guest.Email,
		GuestPhone:     b.Guest.Phone,
		CheckIn:        b.Stay.CheckIn.String(),
		CheckOut:       b.Stay.CheckOut.String(),
		Nights:         b.Nights,
		TotalPrice:     b.TotalPrice.Amount,
		Currency:       b.TotalPrice.Currency,
		Message:        b.Message,
		Status:         string(b.Status),
		InstantBooking: b.InstantBooking,
		CreatedAt:      b.CreatedAt.UTC(),
		ConfirmedAt:    b.ConfirmedAt,
		CancelledAt:    b.CancelledAt,
		Version:        b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	checkIn, err := dates.Parse(d.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := dates.Parse(d.CheckOut)
	if err != nil {
		return nil, err
	}
	status, err := domainbooking.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:         domainbooking.ID(d.ID),
		PropertyID: property.ID(d.PropertyID),
		Guest: domainbooking.Guest{
			UserID: d.GuestUserID,
			Name:   d.GuestName,
			Email:  d.GuestEmail,
			Phone:  d.GuestPhone,
		},
		Stay:           dates.Range{CheckIn: checkIn, CheckOut: checkOut},
		Nights:         d.Nights,
		TotalPrice:     money.Money{Amount: d.TotalPrice, Currency: d.Currency},
		Message:        d.Message,
		Status:         status,
		InstantBooking: d.InstantBooking,
		CreatedAt:      d.CreatedAt,
		ConfirmedAt:    d.ConfirmedAt,
		CancelledAt:    d.CancelledAt,
		Version:        d.Version,
	}, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
