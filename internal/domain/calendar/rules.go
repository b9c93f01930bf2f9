package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

var ErrRuleNotFound = errors.New("calendar: rule not found")

type RuleID string

// Pattern is the recurrence shape of a rule. It is a closed sum: weekly,
// monthly or yearly, each carrying only the fields that make sense for it.
type Pattern interface {
	Kind() PatternKind
	Matches(d dates.Date) bool
}

type PatternKind string

const (
	PatternWeekly  PatternKind = "weekly"
	PatternMonthly PatternKind = "monthly"
	PatternYearly  PatternKind = "yearly"
)

// Weekly matches given weekdays. Days follow the calendar wire convention
// 0=Monday … 6=Sunday.
type Weekly struct {
	Days []int
}

func (w Weekly) Kind() PatternKind { return PatternWeekly }

func (w Weekly) Matches(d dates.Date) bool {
	day := mondayBased(d.Weekday())
	for _, want := range w.Days {
		if day == want {
			return true
		}
	}
	return false
}

// Monthly matches one day number in every month.
type Monthly struct {
	DayOfMonth int
}

func (m Monthly) Kind() PatternKind { return PatternMonthly }

func (m Monthly) Matches(d dates.Date) bool {
	return d.Day == m.DayOfMonth
}

// Yearly matches a fixed month/day each year, e.g. a holiday.
type Yearly struct {
	Month time.Month
	Day   int
}

func (y Yearly) Kind() PatternKind { return PatternYearly }

func (y Yearly) Matches(d dates.Date) bool {
	return d.Month == y.Month && d.Day == y.Day
}

func mondayBased(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// NewWeekly validates day numbers before building the pattern.
func NewWeekly(days []int) (Weekly, error) {
	if len(days) == 0 {
		return Weekly{}, fmt.Errorf("calendar: weekly rule needs at least one day")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return Weekly{}, fmt.Errorf("calendar: day of week %d out of range 0-6", d)
		}
	}
	return Weekly{Days: append([]int(nil), days...)}, nil
}

func NewMonthly(dayOfMonth int) (Monthly, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Monthly{}, fmt.Errorf("calendar: day of month %d out of range 1-31", dayOfMonth)
	}
	return Monthly{DayOfMonth: dayOfMonth}, nil
}

func NewYearly(month, day int) (Yearly, error) {
	if month < 1 || month > 12 {
		return Yearly{}, fmt.Errorf("calendar: month %d out of range 1-12", month)
	}
	if day < 1 || day > 31 {
		return Yearly{}, fmt.Errorf("calendar: day %d out of range 1-31", day)
	}
	return Yearly{Month: time.Month(month), Day: day}, nil
}

// Rule imposes a status on every date its pattern matches, bounded by
// [Start, End] and gated by Active.
type Rule struct {
	ID         RuleID
	PropertyID property.ID
	Status     Status
	Pattern    Pattern
	Start      dates.Date
	End        *dates.Date
	Notes      string
	Active     bool
	CreatedAt  time.Time
}

// AppliesOn reports whether the rule imposes its status on date d.
func (r Rule) AppliesOn(d dates.Date) bool {
	if !r.Active || r.Pattern == nil {
		return false
	}
	if d.Before(r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return r.Pattern.Matches(d)
}

// RuleRepository stores recurring rules per property.
type RuleRepository interface {
	ByID(ctx context.Context, id RuleID) (*Rule, error)
	ByProperty(ctx context.Context, id property.ID) ([]Rule, error)
	Save(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id RuleID) error
	DeleteAll(ctx context.Context, id property.ID) error
}

// RuleMatch is one date a rule would mark, produced by expansion.
type RuleMatch struct {
	Date   dates.Date
	Status Status
	RuleID RuleID
}

// ExpandRules materializes rule matches for every date in [from, to] without
// persisting anything. Output is ordered by date; multiple rules matching the
// same date yield multiple matches and precedence is the resolver's job.
func ExpandRules(rules []Rule, from, to dates.Date) []RuleMatch {
	if to.Before(from) {
		return nil
	}
	var out []RuleMatch
	for d := from; !d.After(to); d = d.AddDays(1) {
		for _, r := range rules {
			if r.AppliesOn(d) {
				out = append(out, RuleMatch{Date: d, Status: r.Status, RuleID: r.ID})
			}
		}
	}
	return out
}
