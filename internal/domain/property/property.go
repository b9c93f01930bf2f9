package property

import (
	"context"
	"errors"

	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
	"ereft/internal/domain/shared/money"
)

var ErrNotFound = errors.New("property: not found")

type ID string

// BookingPreference controls whether a booking request confirms immediately or
// waits for owner approval.
type BookingPreference string

const (
	PreferenceInstant BookingPreference = "instant"
	PreferenceRequest BookingPreference = "request"
)

// Property is the engine's view of a listing: identity, ownership, nightly
// price and the stay constraints the booking manager enforces. Catalog fields
// (photos, description, location) live outside this subsystem.
type Property struct {
	ID                ID
	OwnerID           string
	Title             string
	NightlyPrice      money.Money
	BookingPreference BookingPreference
	AvailabilityStart *dates.Date
	AvailabilityEnd   *dates.Date
	MinStayNights     int
	MaxStayNights     *int
	MaxAdults         int
	MaxChildren       int
	PetsAllowed       bool
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	Save(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id ID) error
}

// MinStay never reports less than one night.
func (p *Property) MinStay() int {
	if p.MinStayNights < 1 {
		return 1
	}
	return p.MinStayNights
}

// CheckStay validates a stay length against the property's min/max bounds.
func (p *Property) CheckStay(nights int) error {
	if nights < p.MinStay() {
		return fault.Validationf("stay of %d nights is below the minimum of %d", nights, p.MinStay())
	}
	if p.MaxStayNights != nil && nights > *p.MaxStayNights {
		return fault.Validationf("stay of %d nights exceeds the maximum of %d", nights, *p.MaxStayNights)
	}
	return nil
}

// WindowContains reports whether date d falls inside the property's
// availability window. An unset start defaults to today, an unset end is
// unbounded.
func (p *Property) WindowContains(d, today dates.Date) bool {
	start := today
	if p.AvailabilityStart != nil {
		start = *p.AvailabilityStart
	}
	if d.Before(start) {
		return false
	}
	if p.AvailabilityEnd != nil && d.After(*p.AvailabilityEnd) {
		return false
	}
	return true
}

// CheckStayWindow validates a stay against the availability window bounds.
func (p *Property) CheckStayWindow(stay dates.Range) error {
	if p.AvailabilityStart != nil && stay.CheckIn.Before(*p.AvailabilityStart) {
		return fault.Validationf("check-in %s is before the property opens on %s", stay.CheckIn, *p.AvailabilityStart)
	}
	if p.AvailabilityEnd != nil {
		lastNight := stay.CheckOut.AddDays(-1)
		if lastNight.After(*p.AvailabilityEnd) {
			return fault.Validationf("stay extends past the property's last bookable date %s", *p.AvailabilityEnd)
		}
	}
	return nil
}
