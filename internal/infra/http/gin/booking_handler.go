package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bookingapp "ereft/internal/app/handlers/booking"

	"ereft/internal/app/commands"
	"ereft/internal/app/dto"
	"ereft/internal/app/queries"
	domainbooking "ereft/internal/domain/booking"
	"ereft/internal/domain/shared/dates"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	GuestName    string `json:"guest_name"`
	GuestEmail   string `json:"guest_email"`
	GuestPhone   string `json:"guest_phone"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	Message      string `json:"message"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	checkIn, err := dates.Parse(req.CheckInDate)
	if err != nil {
		writeError(c, err)
		return
	}
	checkOut, err := dates.Parse(req.CheckOutDate)
	if err != nil {
		writeError(c, err)
		return
	}

	principal := currentPrincipal(c)
	cmd := bookingapp.CreateBookingCommand{
		CommandID:  uuid.NewString(),
		PropertyID: c.Param("id"),
		Guest: domainbooking.Guest{
			UserID: principal.ID,
			Name:   req.GuestName,
			Email:  req.GuestEmail,
			Phone:  req.GuestPhone,
		},
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Message:         req.Message,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.BookingFrom(result.Booking))
}

func (h BookingHandler) List(c *gin.Context) {
	query := bookingapp.ListPropertyBookingsQuery{
		PropertyID: c.Param("id"),
		Principal:  currentPrincipal(c),
	}
	list, err := queries.Ask[bookingapp.ListPropertyBookingsQuery, []*domainbooking.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": dto.BookingListFrom(list)})
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{
		BookingID: c.Param("bookingID"),
		Principal: currentPrincipal(c),
	}
	b, err := queries.Ask[bookingapp.GetBookingQuery, *domainbooking.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookingFrom(b))
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h BookingHandler) UpdateStatus(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	status, err := domainbooking.ParseStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.TransitionBookingCommand{
		BookingID: c.Param("bookingID"),
		NewStatus: status,
		Principal: currentPrincipal(c),
	}
	result, err := commands.Dispatch[bookingapp.TransitionBookingCommand, *bookingapp.TransitionBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookingFrom(result.Booking))
}
