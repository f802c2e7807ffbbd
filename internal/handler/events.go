package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// EventAPI is the event use-case surface the handlers depend on.
type EventAPI interface {
	List(ctx context.Context, q model.EventQuery) (model.EventPage, error)
	Get(ctx context.Context, id uint64) (model.Event, error)
	Create(ctx context.Context, adminID uint64, in service.EventInput) (model.Event, error)
	Update(ctx context.Context, id uint64, patch service.EventPatch) (model.Event, error)
	Delete(ctx context.Context, id uint64) error
}

type EventHandler struct {
	Events EventAPI
}

func NewEventHandler(e EventAPI) *EventHandler { return &EventHandler{Events: e} }

// List handles GET /v1/events?page=&limit=&search=&date=&location=.
// Non-numeric page or limit fall back to the defaults.
func (h *EventHandler) List(c echo.Context) error {
	q := model.EventQuery{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Location: strings.TrimSpace(c.QueryParam("location")),
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, string(service.KindValidation), "date must be a date in YYYY-MM-DD format")
		}
		q.Date = &d
	}
	page, err := h.Events.List(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	e, err := h.Events.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Create handles POST /v1/admin/events.
func (h *EventHandler) Create(c echo.Context) error {
	var req service.EventInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	uid, _ := currentUser(c)
	e, err := h.Events.Create(c.Request().Context(), uid, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Update handles PUT /v1/admin/events/:id.  Only fields present in the
// body change.
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	var req service.EventPatch
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	e, err := h.Events.Update(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /v1/admin/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	if err := h.Events.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event deleted"})
}
