package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
)

// RegisterBookings registers the booking endpoints under /v1.  All routes
// require a valid JWT; any role may book.  Reservations and cancellations
// pass through the rate limiter and bump the event cache generation, since
// both change an event's seat count.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc, cache *middleware.ResponseCache) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/bookings", h.Create, limit, cache.Invalidate())
	g.DELETE("/bookings/:id", h.Cancel, limit, cache.Invalidate())
	g.GET("/bookings/:id", h.Get)
	g.GET("/my-bookings", h.Mine)
}
