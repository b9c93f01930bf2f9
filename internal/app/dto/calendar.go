package dto

import (
	"ereft/internal/domain/calendar"
)

// DayStatus is the resolved availability of one date as returned by the
// calendar read endpoints.
type DayStatus struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// DayStatusFrom maps a resolved day. When redactNotes is set (reader does not
// manage the property) notes and origin are withheld.
func DayStatusFrom(day calendar.DayStatus, redactNotes bool) DayStatus {
	out := DayStatus{
		Date:   day.Date.String(),
		Status: string(day.Status),
	}
	if redactNotes {
		return out
	}
	out.Notes = day.Notes
	if day.Origin != nil {
		out.Origin = day.Origin.String()
	}
	return out
}

func DayStatusListFrom(days []calendar.DayStatus, redactNotes bool) []DayStatus {
	out := make([]DayStatus, 0, len(days))
	for _, day := range days {
		out = append(out, DayStatusFrom(day, redactNotes))
	}
	return out
}

// CalendarEntry is the owner-facing persisted form of one calendar date.
type CalendarEntry struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Origin     string `json:"origin"`
	Notes      string `json:"notes,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

func CalendarEntryFrom(e calendar.Entry) CalendarEntry {
	return CalendarEntry{
		PropertyID: string(e.PropertyID),
		Date:       e.Date.String(),
		Status:     string(e.Status),
		Origin:     e.Origin.String(),
		Notes:      e.Notes,
		UpdatedAt:  e.UpdatedAt.UTC().Format(timeLayout),
	}
}

// BulkItemError reports why one item of a bulk calendar write was rejected.
type BulkItemError struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// BulkUpsertResult summarizes a bulk calendar write. Errors serializes as
// null when every item applied cleanly.
type BulkUpsertResult struct {
	Created int             `json:"created"`
	Updated int             `json:"updated"`
	Errors  []BulkItemError `json:"errors"`
}

// RecurringRule is the wire form of a rule. Pattern fields are populated
// according to RuleType: days_of_week for weekly, day_of_month for monthly,
// month+day_of_month for yearly.
type RecurringRule struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	RuleType   string `json:"rule_type"`
	Status     string `json:"status"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
	DayOfMonth int    `json:"day_of_month,omitempty"`
	Month      int    `json:"month,omitempty"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date,omitempty"`
	Notes      string `json:"notes,omitempty"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

func RecurringRuleFrom(r calendar.Rule) RecurringRule {
	out := RecurringRule{
		ID:         string(r.ID),
		PropertyID: string(r.PropertyID),
		Status:     string(r.Status),
		StartDate:  r.Start.String(),
		Notes:      r.Notes,
		IsActive:   r.Active,
		CreatedAt:  r.CreatedAt.UTC().Format(timeLayout),
	}
	if r.End != nil {
		out.EndDate = r.End.String()
	}
	switch pat := r.Pattern.(type) {
	case calendar.Weekly:
		out.RuleType = string(calendar.PatternWeekly)
		out.DaysOfWeek = pat.Days
	case calendar.Monthly:
		out.RuleType = string(calendar.PatternMonthly)
		out.DayOfMonth = pat.DayOfMonth
	case calendar.Yearly:
		out.RuleType = string(calendar.PatternYearly)
		out.Month = int(pat.Month)
		out.DayOfMonth = pat.Day
	}
	return out
}

func RecurringRuleListFrom(rules []calendar.Rule) []RecurringRule {
	out := make([]RecurringRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, RecurringRuleFrom(r))
	}
	return out
}
