package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	availabilityapp "ereft/internal/app/handlers/availability"

	"ereft/internal/app/commands"
	"ereft/internal/app/dto"
	"ereft/internal/app/queries"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/shared/dates"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	query := availabilityapp.ListCalendarQuery{
		PropertyID: c.Param("id"),
		Principal:  currentPrincipal(c),
	}
	if raw := c.Query("start_date"); raw != "" {
		from, err := dates.Parse(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		query.From = &from
	}
	if raw := c.Query("end_date"); raw != "" {
		to, err := dates.Parse(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		query.To = &to
	}

	days, err := queries.Ask[availabilityapp.ListCalendarQuery, []dto.DayStatus](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_id": query.PropertyID, "days": days})
}

type calendarItemRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type bulkUpsertRequest struct {
	Dates []calendarItemRequest `json:"dates"`
}

func (h AvailabilityHandler) BulkUpsert(c *gin.Context) {
	var req bulkUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	cmd := availabilityapp.BulkUpsertCalendarCommand{
		PropertyID: c.Param("id"),
		Principal:  currentPrincipal(c),
	}
	for _, item := range req.Dates {
		cmd.Items = append(cmd.Items, availabilityapp.CalendarItemInput{
			Date:   item.Date,
			Status: item.Status,
			Notes:  item.Notes,
		})
	}

	result, err := commands.Dispatch[availabilityapp.BulkUpsertCalendarCommand, *dto.BulkUpsertResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if result.Created > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

type setDateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h AvailabilityHandler) SetDate(c *gin.Context) {
	date, err := dates.Parse(c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req setDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	status, err := calendar.ParseStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.SetCalendarDateCommand{
		PropertyID: c.Param("id"),
		Date:       date,
		Status:     status,
		Notes:      req.Notes,
		Principal:  currentPrincipal(c),
	}
	result, err := commands.Dispatch[availabilityapp.SetCalendarDateCommand, *availabilityapp.SetCalendarDateResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	c.JSON(code, result.Entry)
}

func (h AvailabilityHandler) RemoveDate(c *gin.Context) {
	date, err := dates.Parse(c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.RemoveCalendarDateCommand{
		PropertyID: c.Param("id"),
		Date:       date,
		Principal:  currentPrincipal(c),
	}
	if _, err := commands.Dispatch[availabilityapp.RemoveCalendarDateCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AvailabilityHandler) ListRules(c *gin.Context) {
	query := availabilityapp.ListRulesQuery{
		PropertyID: c.Param("id"),
		Principal:  currentPrincipal(c),
	}
	rules, err := queries.Ask[availabilityapp.ListRulesQuery, []dto.RecurringRule](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type createRuleRequest struct {
	RuleType   string `json:"rule_type"`
	Status     string `json:"status"`
	DaysOfWeek []int  `json:"days_of_week"`
	DayOfMonth int    `json:"day_of_month"`
	Month      int    `json:"month"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Notes      string `json:"notes"`
}

func (h AvailabilityHandler) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	start, err := dates.Parse(req.StartDate)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.CreateRuleCommand{
		RuleID:     uuid.NewString(),
		PropertyID: c.Param("id"),
		RuleType:   req.RuleType,
		Status:     req.Status,
		DaysOfWeek: req.DaysOfWeek,
		DayOfMonth: req.DayOfMonth,
		Month:      req.Month,
		StartDate:  start,
		Notes:      req.Notes,
		Principal:  currentPrincipal(c),
	}
	if req.EndDate != "" {
		end, err := dates.Parse(req.EndDate)
		if err != nil {
			writeError(c, err)
			return
		}
		cmd.EndDate = &end
	}
	rule, err := commands.Dispatch[availabilityapp.CreateRuleCommand, *dto.RecurringRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

type updateRuleRequest struct {
	IsActive *bool   `json:"is_active"`
	Notes    *string `json:"notes"`
	EndDate  *string `json:"end_date"`
}

func (h AvailabilityHandler) UpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	cmd := availabilityapp.UpdateRuleCommand{
		RuleID:    c.Param("ruleID"),
		Active:    req.IsActive,
		Notes:     req.Notes,
		Principal: currentPrincipal(c),
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			cmd.ClearEnd = true
		} else {
			end, err := dates.Parse(*req.EndDate)
			if err != nil {
				writeError(c, err)
				return
			}
			cmd.EndDate = &end
		}
	}
	rule, err := commands.Dispatch[availabilityapp.UpdateRuleCommand, *dto.RecurringRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h AvailabilityHandler) DeleteRule(c *gin.Context) {
	cmd := availabilityapp.DeleteRuleCommand{
		RuleID:    c.Param("ruleID"),
		Principal: currentPrincipal(c),
	}
	if _, err := commands.Dispatch[availabilityapp.DeleteRuleCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
