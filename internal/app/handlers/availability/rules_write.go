package availability

import (
	"context"
	"time"

	"ereft/internal/app/commands"
	"ereft/internal/app/dto"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
)

const (
	createRuleKey = "availability.create_rule"
	updateRuleKey = "availability.update_rule"
	deleteRuleKey = "availability.delete_rule"
)

type CreateRuleCommand struct {
	RuleID     string
	PropertyID string
	RuleType   string
	Status     string
	DaysOfWeek []int
	DayOfMonth int
	Month      int
	StartDate  dates.Date
	EndDate    *dates.Date
	Notes      string
	Principal  access.Principal
}

func (c CreateRuleCommand) Key() string { return createRuleKey }

type CreateRuleHandler struct {
	Gate  access.Gate
	Clock func() time.Time
}

func (h *CreateRuleHandler) Handle(ctx context.Context, cmd CreateRuleCommand) (*dto.RecurringRule, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	prop, err := unit.Properties().ByID(ctx, property.ID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	if err := h.Gate.RequireManage(cmd.Principal, prop); err != nil {
		return nil, err
	}

	status, err := calendar.ParseStatus(cmd.Status)
	if err != nil {
		return nil, fault.Validationf("invalid rule status %q", cmd.Status)
	}
	pattern, err := buildPattern(cmd.RuleType, cmd.DaysOfWeek, cmd.DayOfMonth, cmd.Month)
	if err != nil {
		return nil, err
	}
	if cmd.EndDate != nil && cmd.EndDate.Before(cmd.StartDate) {
		return nil, fault.Validationf("end_date %s is before start_date %s", cmd.EndDate, cmd.StartDate)
	}

	rule := calendar.Rule{
		ID:         calendar.RuleID(cmd.RuleID),
		PropertyID: prop.ID,
		Status:     status,
		Pattern:    pattern,
		Start:      cmd.StartDate,
		End:        cmd.EndDate,
		Notes:      cmd.Notes,
		Active:     true,
		CreatedAt:  h.now(),
	}
	if err := unit.Rules().Save(ctx, &rule); err != nil {
		return nil, err
	}
	out := dto.RecurringRuleFrom(rule)
	return &out, nil
}

func (h *CreateRuleHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

func buildPattern(ruleType string, daysOfWeek []int, dayOfMonth, month int) (calendar.Pattern, error) {
	switch calendar.PatternKind(ruleType) {
	case calendar.PatternWeekly:
		return calendar.NewWeekly(daysOfWeek)
	case calendar.PatternMonthly:
		return calendar.NewMonthly(dayOfMonth)
	case calendar.PatternYearly:
		return calendar.NewYearly(month, dayOfMonth)
	default:
		return nil, fault.Validationf("invalid rule_type %q", ruleType)
	}
}

type UpdateRuleCommand struct {
	RuleID    string
	Active    *bool
	Notes     *string
	EndDate   *dates.Date
	ClearEnd  bool
	Principal access.Principal
}

func (c UpdateRuleCommand) Key() string { return updateRuleKey }

// UpdateRuleHandler changes a rule's active flag, notes or end date. The
// pattern itself is immutable; replace the rule to change it.
type UpdateRuleHandler struct {
	Gate access.Gate
}

func (h *UpdateRuleHandler) Handle(ctx context.Context, cmd UpdateRuleCommand) (*dto.RecurringRule, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	rule, err := unit.Rules().ByID(ctx, calendar.RuleID(cmd.RuleID))
	if err != nil {
		return nil, err
	}
	prop, err := unit.Properties().ByID(ctx, rule.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := h.Gate.RequireManage(cmd.Principal, prop); err != nil {
		return nil, err
	}

	if cmd.Active != nil {
		rule.Active = *cmd.Active
	}
	if cmd.Notes != nil {
		rule.Notes = *cmd.Notes
	}
	if cmd.ClearEnd {
		rule.End = nil
	} else if cmd.EndDate != nil {
		if cmd.EndDate.Before(rule.Start) {
			return nil, fault.Validationf("end_date %s is before start_date %s", cmd.EndDate, rule.Start)
		}
		rule.End = cmd.EndDate
	}

	if err := unit.Rules().Save(ctx, rule); err != nil {
		return nil, err
	}
	out := dto.RecurringRuleFrom(*rule)
	return &out, nil
}

type DeleteRuleCommand struct {
	RuleID    string
	Principal access.Principal
}

func (c DeleteRuleCommand) Key() string { return deleteRuleKey }

type DeleteRuleHandler struct {
	Gate access.Gate
}

func (h *DeleteRuleHandler) Handle(ctx context.Context, cmd DeleteRuleCommand) (struct{}, error) {
	var zero struct{}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return zero, uow.ErrUnitOfWorkMissing
	}

	rule, err := unit.Rules().ByID(ctx, calendar.RuleID(cmd.RuleID))
	if err != nil {
		return zero, err
	}
	prop, err := unit.Properties().ByID(ctx, rule.PropertyID)
	if err != nil {
		return zero, err
	}
	if err := h.Gate.RequireManage(cmd.Principal, prop); err != nil {
		return zero, err
	}
	if err := unit.Rules().Delete(ctx, rule.ID); err != nil {
		return zero, err
	}
	return zero, nil
}

var _ commands.Handler[CreateRuleCommand, *dto.RecurringRule] = (*CreateRuleHandler)(nil)
var _ commands.Handler[UpdateRuleCommand, *dto.RecurringRule] = (*UpdateRuleHandler)(nil)
var _ commands.Handler[DeleteRuleCommand, struct{}] = (*DeleteRuleHandler)(nil)
