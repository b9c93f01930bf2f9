package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	propertyapp "ereft/internal/app/handlers/property"

	"ereft/internal/app/commands"
	"ereft/internal/app/queries"
	domainproperty "ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

type PropertyHandler struct {
	Commands        commands.Bus
	Queries         queries.Bus
	DefaultCurrency string
}

type createPropertyRequest struct {
	Title             string `json:"title"`
	NightlyPrice      int64  `json:"nightly_price"`
	Currency          string `json:"currency"`
	BookingPreference string `json:"booking_preference"`
	AvailabilityStart string `json:"availability_start"`
	AvailabilityEnd   string `json:"availability_end"`
	MinStayNights     int    `json:"min_stay_nights"`
	MaxStayNights     *int   `json:"max_stay_nights"`
	MaxAdults         int    `json:"max_adults"`
	MaxChildren       int    `json:"max_children"`
	PetsAllowed       bool   `json:"pets_allowed"`
}

func (h PropertyHandler) Create(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = h.DefaultCurrency
	}
	cmd := propertyapp.CreatePropertyCommand{
		PropertyID:        uuid.NewString(),
		Title:             req.Title,
		NightlyPrice:      req.NightlyPrice,
		Currency:          currency,
		BookingPreference: req.BookingPreference,
		MinStayNights:     req.MinStayNights,
		MaxStayNights:     req.MaxStayNights,
		MaxAdults:         req.MaxAdults,
		MaxChildren:       req.MaxChildren,
		PetsAllowed:       req.PetsAllowed,
		Principal:         currentPrincipal(c),
	}
	if req.AvailabilityStart != "" {
		start, err := dates.Parse(req.AvailabilityStart)
		if err != nil {
			writeError(c, err)
			return
		}
		cmd.AvailabilityStart = &start
	}
	if req.AvailabilityEnd != "" {
		end, err := dates.Parse(req.AvailabilityEnd)
		if err != nil {
			writeError(c, err)
			return
		}
		cmd.AvailabilityEnd = &end
	}

	prop, err := commands.Dispatch[propertyapp.CreatePropertyCommand, *domainproperty.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, propertyResponse(prop))
}

func (h PropertyHandler) Get(c *gin.Context) {
	query := propertyapp.GetPropertyQuery{PropertyID: c.Param("id")}
	prop, err := queries.Ask[propertyapp.GetPropertyQuery, *domainproperty.Property](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, propertyResponse(prop))
}

func (h PropertyHandler) Delete(c *gin.Context) {
	cmd := propertyapp.DeletePropertyCommand{
		PropertyID: c.Param("id"),
		Principal:  currentPrincipal(c),
	}
	if _, err := commands.Dispatch[propertyapp.DeletePropertyCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func propertyResponse(p *domainproperty.Property) gin.H {
	out := gin.H{
		"id":                 string(p.ID),
		"owner_id":           p.OwnerID,
		"title":              p.Title,
		"nightly_price":      p.NightlyPrice.Amount,
		"currency":           p.NightlyPrice.Currency,
		"booking_preference": string(p.BookingPreference),
		"min_stay_nights":    p.MinStay(),
		"max_adults":         p.MaxAdults,
		"max_children":       p.MaxChildren,
		"pets_allowed":       p.PetsAllowed,
	}
	if p.AvailabilityStart != nil {
		out["availability_start"] = p.AvailabilityStart.String()
	}
	if p.AvailabilityEnd != nil {
		out["availability_end"] = p.AvailabilityEnd.String()
	}
	if p.MaxStayNights != nil {
		out["max_stay_nights"] = *p.MaxStayNights
	}
	return out
}
