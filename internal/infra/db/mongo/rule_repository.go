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

type RuleRepository struct {
	col *mongo.Collection
}

func NewRuleRepository(db *mongo.Database) *RuleRepository {
	return &RuleRepository{col: db.Collection("calendar_rules")}
}

func (r *RuleRepository) ByID(ctx context.Context, id calendar.RuleID) (*calendar.Rule, error) {
	var doc ruleDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, calendar.ErrRuleNotFound
		}
		return nil, fault.Transient(err)
	}
	rule, err := doc.toRule()
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepository) ByProperty(ctx context.Context, id property.ID) ([]calendar.Rule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(id)}, opts)
	if err != nil {
		return nil, fault.Transient(err)
	}
	defer cur.Close(ctx)

	var out []calendar.Rule
	for cur.Next(ctx) {
		var doc ruleDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rule, err := doc.toRule()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := cur.Err(); err != nil {
		return nil, fault.Transient(err)
	}
	return out, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *calendar.Rule) error {
	doc, err := newRuleDocument(rule)
	if err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fault.Transient(err)
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id calendar.RuleID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return fault.Transient(err)
	}
	if res.DeletedCount == 0 {
		return calendar.ErrRuleNotFound
	}
	return nil
}

func (r *RuleRepository) DeleteAll(ctx context.Context, id property.ID) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"property_id": string(id)}); err != nil {
		return fault.Transient(err)
	}
	return nil
}

type ruleDocument struct {
	ID         string    `bson:"_id"`
	PropertyID string    `bson:"property_id"`
	Status     string    `bson:"status"`
	RuleType   string    `bson:"rule_type"`
	DaysOfWeek []int     `bson:"days_of_week,omitempty"`
	DayOfMonth int       `bson:"day_of_month,omitempty"`
	Month      int       `bson:"month,omitempty"`
	StartDate  string    `bson:"start_date"`
	EndDate    *string   `bson:"end_date,omitempty"`
	Notes      string    `bson:"notes,omitempty"`
	Active     bool      `bson:"active"`
	CreatedAt  time.Time `bson:"created_at"`
}

func newRuleDocument(rule *calendar.Rule) (ruleDocument, error) {
	doc := ruleDocument{
		ID:         string(rule.ID),
		PropertyID: string(rule.PropertyID),
		Status:     string(rule.Status),
		StartDate:  rule.Start.String(),
		Notes:      rule.Notes,
		Active:     rule.Active,
		CreatedAt:  rule.CreatedAt.UTC(),
	}
	if rule.End != nil {
		s := rule.End.String()
		doc.EndDate = &s
	}
	switch pat := rule.Pattern.(type) {
	case calendar.Weekly:
		doc.RuleType = string(calendar.PatternWeekly)
		doc.DaysOfWeek = pat.Days
	case calendar.Monthly:
		doc.RuleType = string(calendar.PatternMonthly)
		doc.DayOfMonth = pat.DayOfMonth
	case calendar.Yearly:
		doc.RuleType = string(calendar.PatternYearly)
		doc.Month = int(pat.Month)
		doc.DayOfMonth = pat.Day
	default:
		return ruleDocument{}, fault.Validationf("rule %s has no pattern", rule.ID)
	}
	return doc, nil
}

func (d ruleDocument) toRule() (calendar.Rule, error) {
	start, err := dates.Parse(d.StartDate)
	if err != nil {
		return calendar.Rule{}, err
	}
	status, err := calendar.ParseStatus(d.Status)
	if err != nil {
		return calendar.Rule{}, err
	}
	rule := calendar.Rule{
		ID:         calendar.RuleID(d.ID),
		PropertyID: property.ID(d.PropertyID),
		Status:     status,
		Start:      start,
		Notes:      d.Notes,
		Active:     d.Active,
		CreatedAt:  d.CreatedAt,
	}
	if d.EndDate != nil {
		end, err := dates.Parse(*d.EndDate)
		if err != nil {
			return calendar.Rule{}, err
		}
		rule.End = &end
	}
	switch calendar.PatternKind(d.RuleType) {
	case calendar.PatternWeekly:
		pat, err := calendar.NewWeekly(d.DaysOfWeek)
		if err != nil {
			return calendar.Rule{}, err
		}
		rule.Pattern = pat
	case calendar.PatternMonthly:
		pat, err := calendar.NewMonthly(d.DayOfMonth)
		if err != nil {
			return calendar.Rule{}, err
		}
		rule.Pattern = pat
	case calendar.PatternYearly:
		pat, err := calendar.NewYearly(d.Month, d.DayOfMonth)
		if err != nil {
			return calendar.Rule{}, err
		}
		rule.Pattern = pat
	}
	return rule, nil
}

var _ calendar.RuleRepository = (*RuleRepository)(nil)
