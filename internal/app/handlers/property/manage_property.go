package property

import (
	"context"

	"ereft/internal/app/commands"
	"ereft/internal/app/queries"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	domainproperty "ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
	"ereft/internal/domain/shared/fault"
	"ereft/internal/domain/shared/money"
)

const (
	createPropertyKey = "property.create"
	getPropertyKey    = "property.get"
	deletePropertyKey = "property.delete"
)

type CreatePropertyCommand struct {
	PropertyID        string
	Title             string
	NightlyPrice      int64
	Currency          string
	BookingPreference string
	AvailabilityStart *dates.Date
	AvailabilityEnd   *dates.Date
	MinStayNights     int
	MaxStayNights     *int
	MaxAdults         int
	MaxChildren       int
	PetsAllowed       bool
	Principal         access.Principal
}

func (c CreatePropertyCommand) Key() string { return createPropertyKey }

type CreatePropertyHandler struct{}

func (h *CreatePropertyHandler) Handle(ctx context.Context, cmd CreatePropertyCommand) (*domainproperty.Property, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	if cmd.Principal.IsAnonymous() {
		return nil, access.ErrUnauthenticated
	}
	if cmd.Title == "" {
		return nil, fault.Validationf("title is required")
	}
	price, err := money.New(cmd.NightlyPrice, cmd.Currency)
	if err != nil {
		return nil, fault.Validationf("invalid nightly price")
	}
	pref := domainproperty.BookingPreference(cmd.BookingPreference)
	switch pref {
	case domainproperty.PreferenceInstant, domainproperty.PreferenceRequest:
	case "":
		pref = domainproperty.PreferenceRequest
	default:
		return nil, fault.Validationf("invalid booking_preference %q", cmd.BookingPreference)
	}
	if cmd.AvailabilityStart != nil && cmd.AvailabilityEnd != nil &&
		cmd.AvailabilityEnd.Before(*cmd.AvailabilityStart) {
		return nil, fault.Validationf("availability_end is before availability_start")
	}

	prop := &domainproperty.Property{
		ID:                domainproperty.ID(cmd.PropertyID),
		OwnerID:           cmd.Principal.ID,
		Title:             cmd.Title,
		NightlyPrice:      price,
		BookingPreference: pref,
		AvailabilityStart: cmd.AvailabilityStart,
		AvailabilityEnd:   cmd.AvailabilityEnd,
		MinStayNights:     cmd.MinStayNights,
		MaxStayNights:     cmd.MaxStayNights,
		MaxAdults:         cmd.MaxAdults,
		MaxChildren:       cmd.MaxChildren,
		PetsAllowed:       cmd.PetsAllowed,
	}
	if err := unit.Properties().Save(ctx, prop); err != nil {
		return nil, err
	}
	return prop, nil
}

type GetPropertyQuery struct {
	PropertyID string
}

func (q GetPropertyQuery) Key() string { return getPropertyKey }

type GetPropertyHandler struct {
	Properties domainproperty.Repository
}

func (h *GetPropertyHandler) Handle(ctx context.Context, q GetPropertyQuery) (*domainproperty.Property, error) {
	return h.Properties.ByID(ctx, domainproperty.ID(q.PropertyID))
}

type DeletePropertyCommand struct {
	PropertyID string
	Principal  access.Principal
}

func (c DeletePropertyCommand) Key() string { return deletePropertyKey }

// DeletePropertyHandler removes a property and cascades to its calendar
// entries, rules and bookings in the same transaction.
type DeletePropertyHandler struct {
	Gate access.Gate
}

func (h *DeletePropertyHandler) Handle(ctx context.Context, cmd DeletePropertyCommand) (struct{}, error) {
	var zero struct{}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return zero, uow.ErrUnitOfWorkMissing
	}

	prop, err := unit.Properties().ByID(ctx, domainproperty.ID(cmd.PropertyID))
	if err != nil {
		return zero, err
	}
	if err := h.Gate.RequireManage(cmd.Principal, prop); err != nil {
		return zero, err
	}

	if err := unit.Calendar().DeleteAll(ctx, prop.ID); err != nil {
		return zero, err
	}
	if err := unit.Rules().DeleteAll(ctx, prop.ID); err != nil {
		return zero, err
	}
	if err := unit.Bookings().DeleteAll(ctx, prop.ID); err != nil {
		return zero, err
	}
	if err := unit.Properties().Delete(ctx, prop.ID); err != nil {
		return zero, err
	}
	return zero, nil
}

var _ commands.Handler[CreatePropertyCommand, *domainproperty.Property] = (*CreatePropertyHandler)(nil)
var _ queries.Handler[GetPropertyQuery, *domainproperty.Property] = (*GetPropertyHandler)(nil)
var _ commands.Handler[DeletePropertyCommand, struct{}] = (*DeletePropertyHandler)(nil)
