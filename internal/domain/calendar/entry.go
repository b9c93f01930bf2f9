package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

var (
	ErrEntryNotFound = errors.New("calendar: entry not found")
	// ErrEntryLocked rejects owner writes to a date held by a confirmed booking.
	ErrEntryLocked   = errors.New("calendar: date is locked by a confirmed booking")
	ErrInvalidStatus = errors.New("calendar: invalid status")
	ErrInvalidOrigin = errors.New("calendar: invalid origin")
)

// Status of a single persisted calendar date.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusBlocked   Status = "blocked"
)

func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusAvailable, StatusBooked, StatusBlocked:
		return Status(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
}

// OriginKind distinguishes who put an entry on the calendar. Rule expansion is
// never persisted, so it has no origin kind here.
type OriginKind string

const (
	OriginOwner   OriginKind = "owner_override"
	OriginBooking OriginKind = "booking"
)

// Origin tags an entry with its provenance so cancellation knows exactly which
// entries belong to a booking and which are the owner's.
type Origin struct {
	Kind      OriginKind
	BookingID string
}

func OwnerOrigin() Origin {
	return Origin{Kind: OriginOwner}
}

func BookingOrigin(bookingID string) Origin {
	return Origin{Kind: OriginBooking, BookingID: bookingID}
}

func (o Origin) IsBooking() bool {
	return o.Kind == OriginBooking
}

// String renders the persisted form: "owner_override" or "booking:<id>".
func (o Origin) String() string {
	if o.Kind == OriginBooking {
		return string(OriginBooking) + ":" + o.BookingID
	}
	return string(OriginOwner)
}

func ParseOrigin(value string) (Origin, error) {
	if value == string(OriginOwner) {
		return OwnerOrigin(), nil
	}
	if rest, ok := strings.CutPrefix(value, string(OriginBooking)+":"); ok && rest != "" {
		return BookingOrigin(rest), nil
	}
	return Origin{}, fmt.Errorf("%w: %q", ErrInvalidOrigin, value)
}

// Entry is one (property, date, status) record. At most one entry exists per
// (property, date).
type Entry struct {
	PropertyID property.ID
	Date       dates.Date
	Status     Status
	Origin     Origin
	Notes      string
	UpdatedAt  time.Time
}

// Store is the durable calendar. Range results are ordered by date ascending.
// BulkUpsert applies all entries in one atomic write; readers never observe a
// half-applied batch.
type Store interface {
	Range(ctx context.Context, id property.ID, from, to dates.Date) ([]Entry, error)
	Get(ctx context.Context, id property.ID, date dates.Date) (Entry, error)
	Upsert(ctx context.Context, entry Entry) (created bool, err error)
	BulkUpsert(ctx context.Context, id property.ID, entries []Entry) (created, updated int, err error)
	Delete(ctx context.Context, id property.ID, date dates.Date) error
	// DeleteByOrigin removes every entry carrying the given origin, leaving
	// owner overrides on the same dates untouched.
	DeleteByOrigin(ctx context.Context, id property.ID, origin Origin) error
	DeleteAll(ctx context.Context, id property.ID) error
}
