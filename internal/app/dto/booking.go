package dto

import (
	"time"

	"ereft/internal/domain/booking"
)

const timeLayout = time.RFC3339

// Booking is the wire form of a stay request.
type Booking struct {
	ID               string  `json:"id"`
	PropertyID       string  `json:"property_id"`
	GuestUserID      string  `json:"guest_user_id,omitempty"`
	GuestName        string  `json:"guest_name"`
	GuestEmail       string  `json:"guest_email"`
	GuestPhone       string  `json:"guest_phone"`
	CheckInDate      string  `json:"check_in_date"`
	CheckOutDate     string  `json:"check_out_date"`
	Nights           int     `json:"nights"`
	TotalPrice       int64   `json:"total_price"`
	Currency         string  `json:"currency"`
	Message          string  `json:"message,omitempty"`
	Status           string  `json:"status"`
	IsInstantBooking bool    `json:"is_instant_booking"`
	CreatedAt        string  `json:"created_at"`
	ConfirmedAt      *string `json:"confirmed_at,omitempty"`
	CancelledAt      *string `json:"cancelled_at,omitempty"`
}

func BookingFrom(b *booking.Booking) Booking {
	out := Booking{
		ID:               string(b.ID),
		PropertyID:       string(b.PropertyID),
		GuestUserID:      b.Guest.UserID,
		GuestName:        b.Guest.Name,
		GuestEmail:       b.Guest.Email,
		GuestPhone:       b.Guest.Phone,
		CheckInDate:      b.Stay.CheckIn.String(),
		CheckOutDate:     b.Stay.CheckOut.String(),
		Nights:           b.Nights,
		TotalPrice:       b.TotalPrice.Amount,
		Currency:         b.TotalPrice.Currency,
		Message:          b.Message,
		Status:           string(b.Status),
		IsInstantBooking: b.InstantBooking,
		CreatedAt:        b.CreatedAt.UTC().Format(timeLayout),
	}
	if b.ConfirmedAt != nil {
		s := b.ConfirmedAt.UTC().Format(timeLayout)
		out.ConfirmedAt = &s
	}
	if b.CancelledAt != nil {
		s := b.CancelledAt.UTC().Format(timeLayout)
		out.CancelledAt = &s
	}
	return out
}

func BookingListFrom(bs []*booking.Booking) []Booking {
	out := make([]Booking, 0, len(bs))
	for _, b := range bs {
		out = append(out, BookingFrom(b))
	}
	return out
}
