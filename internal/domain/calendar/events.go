package calendar

import (
	"time"

	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

// DatesLocked is recorded when a confirmed booking takes its nights on the
// calendar.
type DatesLocked struct {
	PropertyID string
	BookingID  string
	Stay       dates.Range
	At         time.Time
}

func (e DatesLocked) EventName() string     { return "calendar.dates_locked" }
func (e DatesLocked) AggregateID() string   { return e.PropertyID }
func (e DatesLocked) OccurredAt() time.Time { return e.At }

// DatesReleased is recorded when a cancellation removes booking-origin
// entries.
type DatesReleased struct {
	PropertyID string
	BookingID  string
	Stay       dates.Range
	At         time.Time
}

func (e DatesReleased) EventName() string     { return "calendar.dates_released" }
func (e DatesReleased) AggregateID() string   { return e.PropertyID }
func (e DatesReleased) OccurredAt() time.Time { return e.At }

// OverbookingPrevented is recorded when a booking attempt lost the race for
// its nights.
type OverbookingPrevented struct {
	PropertyID string
	Stay       dates.Range
	At         time.Time
}

func (e OverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.PropertyID }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func NewDatesLocked(id property.ID, bookingID string, stay dates.Range, at time.Time) DatesLocked {
	return DatesLocked{PropertyID: string(id), BookingID: bookingID, Stay: stay, At: at}
}

func NewDatesReleased(id property.ID, bookingID string, stay dates.Range, at time.Time) DatesReleased {
	return DatesReleased{PropertyID: string(id), BookingID: bookingID, Stay: stay, At: at}
}

func NewOverbookingPrevented(id property.ID, stay dates.Range, at time.Time) OverbookingPrevented {
	return OverbookingPrevented{PropertyID: string(id), Stay: stay, At: at}
}
