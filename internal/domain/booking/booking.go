package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/events"
	"ereft/internal/domain/shared/fault"
	"ereft/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("booking: not found")
	ErrInvalidTransition = errors.New("booking: invalid status transition")
)

// DatesUnavailableError reports which requested nights are not available.
type DatesUnavailableError struct {
	Dates []dates.Date
}

func (e *DatesUnavailableError) Error() string {
	formatted := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		formatted[i] = d.String()
	}
	return "booking: dates unavailable: " + strings.Join(formatted, ", ")
}

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return Status(value), nil
	default:
		return "", fault.Validationf("invalid booking status %q", value)
	}
}

// Guest identifies who is staying. UserID is empty for anonymous requests;
// the contact triple is always required.
type Guest struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

func (g Guest) validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fault.Validationf("guest_name is required")
	}
	if strings.TrimSpace(g.Email) == "" {
		return fault.Validationf("guest_email is required")
	}
	if strings.TrimSpace(g.Phone) == "" {
		return fault.Validationf("guest_phone is required")
	}
	return nil
}

// Booking is a stay request against one property. TotalPrice is fixed at
// creation; later property price edits never touch it.
type Booking struct {
	ID             ID
	PropertyID     property.ID
	Guest          Guest
	Stay           dates.Range
	Nights         int
	TotalPrice     money.Money
	Message        string
	Status         Status
	InstantBooking bool
	CreatedAt      time.Time
	ConfirmedAt    *time.Time
	CancelledAt    *time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	ByProperty(ctx context.Context, id property.ID) ([]*Booking, error)
	Save(ctx context.Context, b *Booking) error
	DeleteAll(ctx context.Context, id property.ID) error
}

type CreateParams struct {
	ID            ID
	Property      *property.Property
	Guest         Guest
	Stay          dates.Range
	Message       string
	Now           time.Time
	HorizonDays   int
}

// New validates the request, prices the stay at the property's current
// nightly rate, and returns a pending booking (confirmed immediately when the
// property opts into instant booking).
func New(params CreateParams) (*Booking, error) {
	if err := params.Guest.validate(); err != nil {
		return nil, err
	}
	if err := params.Stay.Validate(); err != nil {
		return nil, fault.Validationf("check_out_date must be after check_in_date")
	}
	today := dates.Today(params.Now)
	if params.Stay.CheckIn.Before(today) {
		return nil, fault.Validationf("check_in_date %s is in the past", params.Stay.CheckIn)
	}
	if params.HorizonDays > 0 {
		horizon := today.AddDays(params.HorizonDays)
		if params.Stay.CheckOut.After(horizon) {
			return nil, fault.Validationf("check_out_date %s is beyond the booking horizon %s", params.Stay.CheckOut, horizon)
		}
	}

	prop := params.Property
	nights := params.Stay.Nights()
	if err := prop.CheckStay(nights); err != nil {
		return nil, err
	}

	now := params.Now.UTC()
	b := &Booking{
		ID:         params.ID,
		PropertyID: prop.ID,
		Guest:      params.Guest,
		Stay:       params.Stay,
		Nights:     nights,
		TotalPrice: prop.NightlyPrice.Multiply(int64(nights)),
		Message:    params.Message,
		Status:     StatusPending,
		CreatedAt:  now,
	}
	if prop.BookingPreference == property.PreferenceInstant {
		b.InstantBooking = true
	}
	b.Record(Requested{
		BookingID:  string(b.ID),
		PropertyID: string(b.PropertyID),
		Stay:       b.Stay,
		GuestEmail: b.Guest.Email,
		At:         now,
	})
	return b, nil
}

// CanTransition reports whether the state machine permits from → to. A
// transition to the current state is treated as a permitted no-op by callers.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	default:
		return false
	}
}

// Confirm moves a pending booking to confirmed. Calendar locking is the
// booking manager's responsibility and must happen in the same commit.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status == StatusConfirmed {
		return nil
	}
	if !CanTransition(b.Status, StatusConfirmed) {
		return ErrInvalidTransition
	}
	at := now.UTC()
	b.Status = StatusConfirmed
	b.ConfirmedAt = &at
	b.CancelledAt = nil
	b.Record(Confirmed{
		BookingID:  string(b.ID),
		PropertyID: string(b.PropertyID),
		Stay:       b.Stay,
		Total:      b.TotalPrice,
		At:         at,
	})
	return nil
}

// Cancel is valid from pending or confirmed. The caller releases any
// booking-origin calendar entries when cancelling a confirmed booking.
func (b *Booking) Cancel(now time.Time) error {
	if b.Status == StatusCancelled {
		return nil
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return ErrInvalidTransition
	}
	at := now.UTC()
	wasConfirmed := b.Status == StatusConfirmed
	b.Status = StatusCancelled
	b.CancelledAt = &at
	b.ConfirmedAt = nil
	b.Record(Cancelled{
		BookingID:    string(b.ID),
		PropertyID:   string(b.PropertyID),
		Stay:         b.Stay,
		WasConfirmed: wasConfirmed,
		At:           at,
	})
	return nil
}

// Complete closes out a confirmed stay; allowed only once the guest has
// checked out. Calendar entries stay in place as history.
func (b *Booking) Complete(now time.Time) error {
	if b.Status == StatusCompleted {
		return nil
	}
	if !CanTransition(b.Status, StatusCompleted) {
		return ErrInvalidTransition
	}
	today := dates.Today(now)
	if b.Stay.CheckOut.After(today) {
		return fault.Validationf("booking cannot be completed before check-out date %s", b.Stay.CheckOut)
	}
	b.Status = StatusCompleted
	b.Record(Completed{
		BookingID:  string(b.ID),
		PropertyID: string(b.PropertyID),
		At:         now.UTC(),
	})
	return nil
}
