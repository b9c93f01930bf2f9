package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"ereft/internal/app/lease"
	"ereft/internal/domain/access"
	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
	inframongo "ereft/internal/infra/db/mongo"
)

// writeError maps domain and application errors onto the HTTP contract.
func writeError(c *gin.Context, err error) {
	var unavailable *booking.DatesUnavailableError
	if errors.As(err, &unavailable) {
		formatted := make([]string, len(unavailable.Dates))
		for i, d := range unavailable.Dates {
			formatted[i] = d.String()
		}
		c.JSON(http.StatusConflict, gin.H{
			"detail":            "requested dates are not available",
			"unavailable_dates": formatted,
		})
		return
	}

	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
	case errors.Is(err, access.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": "not allowed to manage this property"})
	case errors.Is(err, property.ErrNotFound),
		errors.Is(err, booking.ErrNotFound),
		errors.Is(err, calendar.ErrEntryNotFound),
		errors.Is(err, calendar.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	case errors.Is(err, calendar.ErrEntryLocked):
		c.JSON(http.StatusConflict, gin.H{"detail": "date is locked by a confirmed booking"})
	case errors.Is(err, booking.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"detail": "status transition not allowed"})
	case errors.Is(err, inframongo.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"detail": "concurrent update, retry the request"})
	case errors.Is(err, lease.ErrTimeout):
		c.JSON(http.StatusLocked, gin.H{"detail": "property is busy, retry shortly"})
	case fault.IsValidation(err),
		errors.Is(err, dates.ErrInvalidDate),
		errors.Is(err, dates.ErrInvalidRange),
		errors.Is(err, calendar.ErrInvalidStatus),
		errors.Is(err, calendar.ErrInvalidOrigin):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case fault.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "storage temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}
