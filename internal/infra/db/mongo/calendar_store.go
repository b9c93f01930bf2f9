package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
)

// CalendarStore persists one document per (property, date). The compound _id
// makes the uniqueness invariant a storage guarantee rather than a code path.
type CalendarStore struct {
	col *mongo.Collection
}

func NewCalendarStore(db *mongo.Database) *CalendarStore {
	return &CalendarStore{col: db.Collection("calendar_entries")}
}

func entryID(id property.ID, date dates.Date) string {
	return string(id) + "#" + date.String()
}

func (s *CalendarStore) Range(ctx context.Context, id property.ID, from, to dates.Date) ([]calendar.Entry, error) {
	filter := bson.M{
		"property_id": string(id),
		"date":        bson.M{"$gte": from.String(), "$lte": to.String()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fault.Transient(err)
	}
	defer cur.Close(ctx)

	var out []calendar.Entry
	for cur.Next(ctx) {
		var doc entryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		entry, err := doc.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := cur.Err(); err != nil {
		return nil, fault.Transient(err)
	}
	return out, nil
}

func (s *CalendarStore) Get(ctx context.Context, id property.ID, date dates.Date) (calendar.Entry, error) {
	var doc entryDocument
	err := s.col.FindOne(ctx, bson.M{"_id": entryID(id, date)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return calendar.Entry{}, calendar.ErrEntryNotFound
		}
		return calendar.Entry{}, fault.Transient(err)
	}
	return doc.toEntry()
}

func (s *CalendarStore) Upsert(ctx context.Context, entry calendar.Entry) (bool, error) {
	doc := newEntryDocument(entry)
	opts := options.Replace().SetUpsert(true)
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		return false, fault.Transient(err)
	}
	return res.UpsertedCount > 0, nil
}

// BulkUpsert applies the batch as one ordered bulk write. Callers run it
// inside a session transaction, which is what makes the batch atomic.
func (s *CalendarStore) BulkUpsert(ctx context.Context, id property.ID, entries []calendar.Entry) (int, int, error) {
	if len(entries) == 0 {
		return 0, 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		e.PropertyID = id
		doc := newEntryDocument(e)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	res, err := s.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, 0, fault.Transient(err)
	}
	created := int(res.UpsertedCount)
	return created, len(entries) - created, nil
}

func (s *CalendarStore) Delete(ctx context.Context, id property.ID, date dates.Date) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": entryID(id, date)})
	if err != nil {
		return fault.Transient(err)
	}
	if res.DeletedCount == 0 {
		return calendar.ErrEntryNotFound
	}
	return nil
}

func (s *CalendarStore) DeleteByOrigin(ctx context.Context, id property.ID, origin calendar.Origin) error {
	filter := bson.M{"property_id": string(id), "origin": origin.String()}
	if _, err := s.col.DeleteMany(ctx, filter); err != nil {
		return fault.Transient(err)
	}
	return nil
}

func (s *CalendarStore) DeleteAll(ctx context.Context, id property.ID) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"property_id": string(id)}); err != nil {
		return fault.Transient(err)
	}
	return nil
}

type entryDocument struct {
	ID         string    `bson:"_id"`
	PropertyID string    `bson:"property_id"`
	Date       string    `bson:"date"`
	Status     string    `bson:"status"`
	Origin     string    `bson:"origin"`
	Notes      string    `bson:"notes,omitempty"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func newEntryDocument(e calendar.Entry) entryDocument {
	return entryDocument{
		ID:         entryID(e.PropertyID, e.Date),
		PropertyID: string(e.PropertyID),
		Date:       e.Date.String(),
		Status:     string(e.Status),
		Origin:     e.Origin.String(),
		Notes:      e.Notes,
		UpdatedAt:  e.UpdatedAt.UTC(),
	}
}

func (d entryDocument) toEntry() (calendar.Entry, error) {
	date, err := dates.Parse(d.Date)
	if err != nil {
		return calendar.Entry{}, err
	}
	status, err := calendar.ParseStatus(d.Status)
	if err != nil {
		return calendar.Entry{}, err
	}
	origin, err := calendar.ParseOrigin(d.Origin)
	if err != nil {
		return calendar.Entry{}, err
	}
	return calendar.Entry{
		PropertyID: property.ID(d.PropertyID),
		Date:       date,
		Status:     status,
		Origin:     origin,
		Notes:      d.Notes,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

var _ calendar.Store = (*CalendarStore)(nil)
