package availability

import (
	"context"

	"ereft/internal/app/dto"
	"ereft/internal/app/queries"
	"ereft/internal/domain/access"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
)

const listRulesKey = "availability.list_rules"

type ListRulesQuery struct {
	PropertyID string
	Principal  access.Principal
}

func (q ListRulesQuery) Key() string { return listRulesKey }

// ListRulesHandler returns a property's recurring rules to its manager.
type ListRulesHandler struct {
	Properties property.Repository
	Rules      calendar.RuleRepository
	Gate       access.Gate
}

func (h *ListRulesHandler) Handle(ctx context.Context, q ListRulesQuery) ([]dto.RecurringRule, error) {
	prop, err := h.Properties.ByID(ctx, property.ID(q.PropertyID))
	if err != nil {
		return nil, err
	}
	if err := h.Gate.RequireManage(q.Principal, prop); err != nil {
		return nil, err
	}
	rules, err := h.Rules.ByProperty(ctx, prop.ID)
	if err != nil {
		return nil, err
	}
	return dto.RecurringRuleListFrom(rules), nil
}

var _ queries.Handler[ListRulesQuery, []dto.RecurringRule] = (*ListRulesHandler)(nil)
