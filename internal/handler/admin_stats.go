package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
)

// StatsAPI is the dashboard surface the handlers depend on.
type StatsAPI interface {
	Dashboard(ctx context.Context) (model.DashboardStats, error)
	RevenueChart(ctx context.Context) ([]model.MonthlyRevenue, error)
}

type StatsHandler struct {
	Stats StatsAPI
}

func NewStatsHandler(s StatsAPI) *StatsHandler { return &StatsHandler{Stats: s} }

// Dashboard handles GET /v1/admin/stats.
func (h *StatsHandler) Dashboard(c echo.Context) error {
	out, err := h.Stats.Dashboard(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RevenueChart handles GET /v1/admin/stats/revenue-chart.
func (h *StatsHandler) RevenueChart(c echo.Context) error {
	out, err := h.Stats.RevenueChart(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}
