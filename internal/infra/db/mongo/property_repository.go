package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
	"ereft/internal/domain/shared/money"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, property.ErrNotFound
		}
		return nil, fault.Transient(err)
	}
	return doc.toAggregate()
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	doc := newPropertyDocument(p)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fault.Transient(err)
	}
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id property.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return fault.Transient(err)
	}
	if res.DeletedCount == 0 {
		return property.ErrNotFound
	}
	return nil
}

type propertyDocument struct {
	ID                string  `bson:"_id"`
	OwnerID           string  `bson:"owner_id"`
	Title             string  `bson:"title"`
	NightlyPrice      int64   `bson:"nightly_price"`
	Currency          string  `bson:"currency"`
	BookingPreference string  `bson:"booking_preference"`
	AvailabilityStart *string `bson:"availability_start,omitempty"`
	AvailabilityEnd   *string `bson:"availability_end,omitempty"`
	MinStayNights     int     `bson:"min_stay_nights"`
	MaxStayNights     *int    `bson:"max_stay_nights,omitempty"`
	MaxAdults         int     `bson:"max_adults"`
	MaxChildren       int     `bson:"max_children"`
	PetsAllowed       bool    `bson:"pets_allowed"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	doc := propertyDocument{
		ID:                string(p.ID),
		OwnerID:           p.OwnerID,
		Title:             p.Title,
		NightlyPrice:      p.NightlyPrice.Amount,
		Currency:          p.NightlyPrice.Currency,
		BookingPreference: string(p.BookingPreference),
		MinStayNights:     p.MinStayNights,
		MaxStayNights:     p.MaxStayNights,
		MaxAdults:         p.MaxAdults,
		MaxChildren:       p.MaxChildren,
		PetsAllowed:       p.PetsAllowed,
	}
	if p.AvailabilityStart != nil {
		s := p.AvailabilityStart.String()
		doc.AvailabilityStart = &s
	}
	if p.AvailabilityEnd != nil {
		s := p.AvailabilityEnd.String()
		doc.AvailabilityEnd = &s
	}
	return doc
}

func (d propertyDocument) toAggregate() (*property.Property, error) {
	p := &property.Property{
		ID:                property.ID(d.ID),
		OwnerID:           d.OwnerID,
		Title:             d.Title,
		NightlyPrice:      money.Money{Amount: d.NightlyPrice, Currency: d.Currency},
		BookingPreference: property.BookingPreference(d.BookingPreference),
		MinStayNights:     d.MinStayNights,
		MaxStayNights:     d.MaxStayNights,
		MaxAdults:         d.MaxAdults,
		MaxChildren:       d.MaxChildren,
		PetsAllowed:       d.PetsAllowed,
	}
	if d.AvailabilityStart != nil {
		start, err := dates.Parse(*d.AvailabilityStart)
		if err != nil {
			return nil, err
		}
		p.AvailabilityStart = &start
	}
	if d.AvailabilityEnd != nil {
		end, err := dates.Parse(*d.AvailabilityEnd)
		if err != nil {
			return nil, err
		}
		p.AvailabilityEnd = &end
	}
	return p, nil
}

var _ property.Repository = (*PropertyRepository)(nil)
