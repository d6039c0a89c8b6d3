package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CancelBookingRequest carries the cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// respondError maps the service error taxonomy onto HTTP status codes so
// the presentation layer can render an appropriate message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrBookingConflict),
		errors.Is(err, entity.ErrBookingLimitReached),
		errors.Is(err, entity.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrPastScheduledTime),
		errors.Is(err, entity.ErrHorizonExceeded),
		errors.Is(err, entity.ErrInvalidDuration),
		errors.Is(err, entity.ErrInvalidType),
		errors.Is(err, entity.ErrPayloadTooLong),
		errors.Is(err, entity.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseBookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return 0, false
	}
	return id, true
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	if err := h.bookingService.CompleteBooking(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking completed"})
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bookingService.CancelBooking(c.Request.Context(), id, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListBookings returns active bookings by default; owner and type
// filters are supported via query parameters.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	ctx := c.Request.Context()
	owner := c.Query("owner")
	status := entity.BookingStatus(c.Query("status"))
	bookingType := entity.BookingType(c.Query("type"))

	var bookings []*entity.Booking
	var err error

	switch {
	case owner != "":
		bookings, err = h.bookingService.GetOwnerBookings(ctx, owner, status)
	case bookingType != "":
		if status == "" {
			status = entity.BookingStatusActive
		}
		bookings, err = h.bookingService.GetBookingsByType(ctx, bookingType, status)
	default:
		bookings, err = h.bookingService.GetActiveBookings(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) CountActive(c *gin.Context) {
	owner := c.Param("owner")

	count, err := h.bookingService.CountActive(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"owner": owner, "active_count": count})
}

func (h *BookingHandler) GetAuditLog(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	logs, err := h.bookingService.GetAuditLog(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
