package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
)

// RegisterAdmin registers the administrator endpoints under /v1/admin.
// All routes require a JWT carrying the ADMIN role.  Event writes
// invalidate the public event cache.
func RegisterAdmin(e *echo.Echo, events *handler.EventHandler, bookings *handler.BookingHandler,
	stats *handler.StatsHandler, jwtSecret string, cache *middleware.ResponseCache) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/events", events.Create, cache.Invalidate())
	g.PUT("/events/:id", events.Update, cache.Invalidate())
	g.DELETE("/events/:id", events.Delete, cache.Invalidate())
	g.GET("/events/:id/bookings", bookings.ListForEvent)

	g.GET("/stats", stats.Dashboard)
	g.GET("/stats/revenue-chart", stats.RevenueChart)
}
