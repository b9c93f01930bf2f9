package booking

import (
	"context"
	"sort"

	"ereft/internal/app/queries"
	"ereft/internal/domain/access"
	domainbooking "ereft/internal/domain/booking"
	"ereft/internal/domain/property"
)

const listPropertyBookingsKey = "booking.list_by_property"

type ListPropertyBookingsQuery struct {
	PropertyID string
	Principal  access.Principal
}

func (q ListPropertyBookingsQuery) Key() string { return listPropertyBookingsKey }

// ListPropertyBookingsHandler returns a property's bookings newest first. Only
// the property manager sees them.
type ListPropertyBookingsHandler struct {
	Properties property.Repository
	Bookings   domainbooking.Repository
	Gate       access.Gate
}

func (h *ListPropertyBookingsHandler) Handle(ctx context.Context, q ListPropertyBookingsQuery) ([]*domainbooking.Booking, error) {
	prop, err := h.Properties.ByID(ctx, property.ID(q.PropertyID))
	if err != nil {
		return nil, err
	}
	if err := h.Gate.RequireManage(q.Principal, prop); err != nil {
		return nil, err
	}
	list, err := h.Bookings.ByProperty(ctx, prop.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

var _ queries.Handler[ListPropertyBookingsQuery, []*domainbooking.Booking] = (*ListPropertyBookingsHandler)(nil)
