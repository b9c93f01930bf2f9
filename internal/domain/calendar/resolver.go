package calendar

import (
	"context"
	"sort"
	"time"

	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

// EffectiveStatus is what the resolver reports for a date after precedence is
// applied. It extends Status with "unavailable" for dates outside the
// property's availability window.
type EffectiveStatus string

const (
	EffectiveAvailable   EffectiveStatus = "available"
	EffectiveBooked      EffectiveStatus = "booked"
	EffectiveBlocked     EffectiveStatus = "blocked"
	EffectiveUnavailable EffectiveStatus = "unavailable"
)

// DayStatus is the resolved state of one date. Origin is set only when an
// explicit entry decided the status.
type DayStatus struct {
	Date   dates.Date
	Status EffectiveStatus
	Notes  string
	Origin *Origin
}

// Resolver composes the effective status of any date from, in precedence
// order: booking-derived locks, explicit owner entries, recurring rules, and
// the property default.
type Resolver struct {
	Entries Store
	Rules   RuleRepository
}

// ResolveRange returns one DayStatus per date in [from, to], ordered by date.
func (r Resolver) ResolveRange(ctx context.Context, prop *property.Property, from, to dates.Date, today dates.Date) ([]DayStatus, error) {
	if to.Before(from) {
		return nil, nil
	}

	entries, err := r.Entries.Range(ctx, prop.ID, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[dates.Date]Entry, len(entries))
	for _, e := range entries {
		byDate[e.Date] = e
	}

	ruleStatus, err := r.ruleStatuses(ctx, prop.ID, from, to)
	if err != nil {
		return nil, err
	}

	days := from.DaysUntil(to) + 1
	out := make([]DayStatus, 0, days)
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, r.resolveDay(prop, d, today, byDate, ruleStatus))
	}
	return out, nil
}

// UnavailableNights lists every night of the stay that does not resolve to
// available. An empty result means the dates themselves are bookable.
func (r Resolver) UnavailableNights(ctx context.Context, prop *property.Property, stay dates.Range, today dates.Date) ([]dates.Date, error) {
	resolved, err := r.ResolveRange(ctx, prop, stay.CheckIn, stay.CheckOut.AddDays(-1), today)
	if err != nil {
		return nil, err
	}
	var unavailable []dates.Date
	for _, day := range resolved {
		if day.Status != EffectiveAvailable {
			unavailable = append(unavailable, day.Date)
		}
	}
	return unavailable, nil
}

// IsBookable answers whether the full stay can be booked: every night must
// resolve to available and the stay must satisfy the property's length and
// window constraints.
func (r Resolver) IsBookable(ctx context.Context, prop *property.Property, stay dates.Range, today dates.Date) (bool, []dates.Date, error) {
	if err := prop.CheckStay(stay.Nights()); err != nil {
		return false, nil, err
	}
	if err := prop.CheckStayWindow(stay); err != nil {
		return false, nil, err
	}
	unavailable, err := r.UnavailableNights(ctx, prop, stay, today)
	if err != nil {
		return false, nil, err
	}
	return len(unavailable) == 0, unavailable, nil
}

func (r Resolver) resolveDay(prop *property.Property, d, today dates.Date, entries map[dates.Date]Entry, rules map[dates.Date]ruleCandidate) DayStatus {
	if entry, ok := entries[d]; ok {
		// A booking-derived lock and an owner override are both explicit
		// entries; I1 guarantees there is only one, so no further ordering is
		// needed here.
		return DayStatus{Date: d, Status: EffectiveStatus(entry.Status), Notes: entry.Notes, Origin: &entry.Origin}
	}
	if cand, ok := rules[d]; ok {
		return DayStatus{Date: d, Status: EffectiveStatus(cand.status)}
	}
	if prop.WindowContains(d, today) {
		return DayStatus{Date: d, Status: EffectiveAvailable}
	}
	return DayStatus{Date: d, Status: EffectiveUnavailable}
}

type ruleCandidate struct {
	status Status
	start  dates.Date
	id     RuleID
}

// ruleStatuses expands active rules over the window and keeps, per date, the
// winning candidate: more restrictive status first (blocked > booked >
// available), then earliest start date, then lowest rule id.
func (r Resolver) ruleStatuses(ctx context.Context, id property.ID, from, to dates.Date) (map[dates.Date]ruleCandidate, error) {
	rules, err := r.Rules.ByProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	winners := make(map[dates.Date]ruleCandidate)
	for _, rule := range rules {
		if !rule.Active || rule.Pattern == nil {
			continue
		}
		lo, hi := clampRuleWindow(rule, from, to)
		if hi.Before(lo) {
			continue
		}
		for _, d := range patternDates(rule.Pattern, lo, hi) {
			cand := ruleCandidate{status: rule.Status, start: rule.Start, id: rule.ID}
			if current, ok := winners[d]; !ok || beats(cand, current) {
				winners[d] = cand
			}
		}
	}
	return winners, nil
}

func clampRuleWindow(rule Rule, from, to dates.Date) (dates.Date, dates.Date) {
	lo := from
	if rule.Start.After(lo) {
		lo = rule.Start
	}
	hi := to
	if rule.End != nil && rule.End.Before(hi) {
		hi = *rule.End
	}
	return lo, hi
}

func beats(a, b ruleCandidate) bool {
	ra, rb := restrictiveness(a.status), restrictiveness(b.status)
	if ra != rb {
		return ra > rb
	}
	if !a.start.Time().Equal(b.start.Time()) {
		return a.start.Before(b.start)
	}
	return a.id < b.id
}

func restrictiveness(s Status) int {
	switch s {
	case StatusBlocked:
		return 2
	case StatusBooked:
		return 1
	default:
		return 0
	}
}

// patternDates enumerates only the dates a pattern matches inside [from, to],
// so resolution cost scales with matches rather than rules × window.
func patternDates(p Pattern, from, to dates.Date) []dates.Date {
	switch pat := p.(type) {
	case Weekly:
		return weeklyDates(pat, from, to)
	case Monthly:
		return monthlyDates(pat, from, to)
	case Yearly:
		return yearlyDates(pat, from, to)
	default:
		// Unknown pattern implementations fall back to a day scan.
		var out []dates.Date
		for d := from; !d.After(to); d = d.AddDays(1) {
			if p.Matches(d) {
				out = append(out, d)
			}
		}
		return out
	}
}

func weeklyDates(p Weekly, from, to dates.Date) []dates.Date {
	var out []dates.Date
	for _, day := range p.Days {
		offset := (day - mondayBased(from.Weekday()) + 7) % 7
		for d := from.AddDays(offset); !d.After(to); d = d.AddDays(7) {
			out = append(out, d)
		}
	}
	sortDates(out)
	return out
}

func monthlyDates(p Monthly, from, to dates.Date) []dates.Date {
	var out []dates.Date
	y, m := from.Year, from.Month
	for {
		d := dates.New(y, m, p.DayOfMonth)
		// Skip months where the day number does not exist (e.g. Feb 30).
		if isRealDate(d) && !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
		m++
		if m > time.December {
			m = time.January
			y++
		}
		if dates.New(y, m, 1).After(to) {
			break
		}
	}
	return out
}

func yearlyDates(p Yearly, from, to dates.Date) []dates.Date {
	var out []dates.Date
	for y := from.Year; y <= to.Year; y++ {
		d := dates.New(y, p.Month, p.Day)
		if isRealDate(d) && !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out
}

// isRealDate rejects constructed dates that time.Date would normalize away,
// such as February 30th.
func isRealDate(d dates.Date) bool {
	return dates.FromTime(d.Time()) == d
}

func sortDates(ds []dates.Date) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
