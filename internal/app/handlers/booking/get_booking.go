package booking

import (
	"context"

	"ereft/internal/app/queries"
	"ereft/internal/domain/access"
	domainbooking "ereft/internal/domain/booking"
	"ereft/internal/domain/property"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID string
	Principal access.Principal
}

func (q GetBookingQuery) Key() string { return getBookingKey }

// GetBookingHandler returns one booking to its guest or the property manager.
type GetBookingHandler struct {
	Properties property.Repository
	Bookings   domainbooking.Repository
	Gate       access.Gate
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*domainbooking.Booking, error) {
	b, err := h.Bookings.ByID(ctx, domainbooking.ID(q.BookingID))
	if err != nil {
		return nil, err
	}
	if q.Principal.ID != "" && q.Principal.ID == b.Guest.UserID {
		return b, nil
	}
	prop, err := h.Properties.ByID(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := h.Gate.RequireManage(q.Principal, prop); err != nil {
		return nil, err
	}
	return b, nil
}

var _ queries.Handler[GetBookingQuery, *domainbooking.Booking] = (*GetBookingHandler)(nil)
