package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking/internal/clock"
	"github.com/iliyamo/event-booking/internal/model"
)

const (
	topEventsLimit      = 5
	recentBookingsLimit = 10
	chartMonths         = 12
)

// ReadTxRunner runs fn inside one read-only snapshot transaction.
type ReadTxRunner interface {
	WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsStore runs the dashboard aggregates.
type StatsStore interface {
	Totals(ctx context.Context) (users, events, bookings int, revenue decimal.Decimal, err error)
	EventSplit(ctx context.Context, today model.Date) (upcoming, past int, err error)
	PeriodTotals(ctx context.Context, from, to time.Time) (model.PeriodTotals, error)
	TopEvents(ctx context.Context, limit int) ([]model.TopEvent, error)
	RecentBookings(ctx context.Context, limit int) ([]model.RecentBooking, error)
	MonthlyTotals(ctx context.Context, from, to time.Time) (map[string]model.PeriodTotals, error)
}

// StatsService computes the admin dashboard.  All figures come from
// committed rows only; each call reads one snapshot so the numbers agree
// with each other.
type StatsService struct {
	tx    ReadTxRunner
	stats StatsStore
	clock clock.Clock
}

func NewStatsService(tx ReadTxRunner, stats StatsStore, clk clock.Clock) *StatsService {
	return &StatsService{tx: tx, stats: stats, clock: clk}
}

// Dashboard returns the overview, the current month's totals, the top
// events by booking count and the latest bookings.
func (s *StatsService) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	now := s.clock.Now()
	monthStart := clock.StartOfMonth(now)

	var out model.DashboardStats
	err := s.tx.WithReadTx(ctx, func(ctx context.Context) error {
		var err error
		o := &out.Overview
		if o.TotalUsers, o.TotalEvents, o.TotalBookings, o.TotalRevenue, err = s.stats.Totals(ctx); err != nil {
			return err
		}
		if o.UpcomingEvents, o.PastEvents, err = s.stats.EventSplit(ctx, model.NewDate(now)); err != nil {
			return err
		}
		o.AvgBookingValue = average(o.TotalRevenue, o.TotalBookings)

		if out.Monthly, err = s.stats.PeriodTotals(ctx, monthStart, monthStart.AddDate(0, 1, 0)); err != nil {
			return err
		}
		if out.TopEvents, err = s.stats.TopEvents(ctx, topEventsLimit); err != nil {
			return err
		}
		out.RecentBookings, err = s.stats.RecentBookings(ctx, recentBookingsLimit)
		return err
	})
	if err != nil {
		return model.DashboardStats{}, translate(ctx, err)
	}
	return out, nil
}

// RevenueChart returns revenue and booking counts for the twelve calendar
// months ending with the current one, oldest first.  Months without
// bookings are reported as zero.
func (s *StatsService) RevenueChart(ctx context.Context) ([]model.MonthlyRevenue, error) {
	from := clock.StartOfMonth(s.clock.Now()).AddDate(0, 1-chartMonths, 0)
	to := from.AddDate(0, chartMonths, 0)

	var totals map[string]model.PeriodTotals
	err := s.tx.WithReadTx(ctx, func(ctx context.Context) error {
		var err error
		totals, err = s.stats.MonthlyTotals(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, translate(ctx, err)
	}
	return fillMonths(from, chartMonths, totals), nil
}

func fillMonths(from time.Time, n int, totals map[string]model.PeriodTotals) []model.MonthlyRevenue {
	out := make([]model.MonthlyRevenue, 0, n)
	for i := 0; i < n; i++ {
		m := from.AddDate(0, i, 0)
		key := m.Format("2006-01")
		t := totals[key]
		out = append(out, model.MonthlyRevenue{
			Month:    key,
			Label:    m.Format("Jan 2006"),
			Revenue:  t.Revenue,
			Bookings: t.Bookings,
		})
	}
	return out
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(n)), 2)
}
