package booking

import (
	"time"

	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/money"
)

type Requested struct {
	BookingID  string
	PropertyID string
	Stay       dates.Range
	GuestEmail string
	At         time.Time
}

func (e Requested) EventName() string     { return "booking.requested" }
func (e Requested) AggregateID() string   { return e.BookingID }
func (e Requested) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	BookingID  string
	PropertyID string
	Stay       dates.Range
	Total      money.Money
	At         time.Time
}

func (e Confirmed) EventName() string     { return "booking.confirmed" }
func (e Confirmed) AggregateID() string   { return e.BookingID }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID    string
	PropertyID   string
	Stay         dates.Range
	WasConfirmed bool
	At           time.Time
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return e.BookingID }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Completed struct {
	BookingID  string
	PropertyID string
	At         time.Time
}

func (e Completed) EventName() string     { return "booking.completed" }
func (e Completed) AggregateID() string   { return e.BookingID }
func (e Completed) OccurredAt() time.Time { return e.At }
