package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/service"
)

// BookingAPI is the booking use-case surface the handlers depend on.
type BookingAPI interface {
	Reserve(ctx context.Context, in service.ReserveInput) (model.Booking, error)
	Cancel(ctx context.Context, in service.CancelInput) error
	Get(ctx context.Context, bookingID, requesterID uint64, requesterIsAdmin bool) (model.Booking, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListForEvent(ctx context.Context, eventID uint64) ([]repository.EventBooking, error)
}

type BookingHandler struct {
	Bookings BookingAPI
}

func NewBookingHandler(b BookingAPI) *BookingHandler { return &BookingHandler{Bookings: b} }

// createBookingReq omits quantity to book a single seat.
type createBookingReq struct {
	EventID  uint64 `json:"event_id" validate:"required"`
	Quantity *int   `json:"quantity" validate:"omitnil,gt=0"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	uid, _ := currentUser(c)
	b, err := h.Bookings.Reserve(c.Request().Context(), service.ReserveInput{EventID: req.EventID, UserID: uid, Quantity: qty})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, _ := currentUser(c)
	out, err := h.Bookings.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	uid, admin := currentUser(c)
	b, err := h.Bookings.Get(c.Request().Context(), id, uid, admin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	uid, admin := currentUser(c)
	if err := h.Bookings.Cancel(c.Request().Context(), service.CancelInput{BookingID: id, RequesterID: uid, RequesterIsAdmin: admin}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled"})
}

// ListForEvent handles GET /v1/admin/events/:id/bookings.
func (h *BookingHandler) ListForEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	out, err := h.Bookings.ListForEvent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
