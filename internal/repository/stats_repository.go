package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking/internal/model"
)

// StatsRepo runs the read-only aggregate queries behind the admin
// dashboard.  Run a group of calls inside TxRunner.WithReadTx to get one
// consistent snapshot.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo constructs a StatsRepo with the given DB handle.
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// Totals returns the number of regular users, events and bookings and the
// revenue of all live bookings.
func (r *StatsRepo) Totals(ctx context.Context) (users, events, bookings int, revenue decimal.Decimal, err error) {
	const q = `SELECT
	             (SELECT COUNT(*) FROM users WHERE role = 'USER'),
	             (SELECT COUNT(*) FROM events),
	             (SELECT COUNT(*) FROM bookings),
	             (SELECT COALESCE(SUM(total_price), 0) FROM bookings)`
	err = conn(ctx, r.db).QueryRowContext(ctx, q).Scan(&users, &events, &bookings, &revenue)
	return
}

// EventSplit counts events dated on or after today and before today.
func (r *StatsRepo) EventSplit(ctx context.Context, today model.Date) (upcoming, past int, err error) {
	const q = `SELECT COALESCE(SUM(date >= ?), 0), COALESCE(SUM(date < ?), 0) FROM events`
	err = conn(ctx, r.db).QueryRowContext(ctx, q, today, today).Scan(&upcoming, &past)
	return
}

// PeriodTotals sums bookings made in [from, to).
func (r *StatsRepo) PeriodTotals(ctx context.Context, from, to time.Time) (model.PeriodTotals, error) {
	var t model.PeriodTotals
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM bookings WHERE booking_date >= ? AND booking_date < ?`,
		from, to).Scan(&t.Bookings, &t.Revenue)
	return t, err
}

// TopEvents returns the events with the most bookings.  Events without
// bookings are not listed.
func (r *StatsRepo) TopEvents(ctx context.Context, limit int) ([]model.TopEvent, error) {
	const q = `SELECT e.id, e.title, e.date, e.price,
	                  COUNT(b.id), COALESCE(SUM(b.quantity), 0), COALESCE(SUM(b.total_price), 0)
	           FROM events e
	           JOIN bookings b ON b.event_id = e.id
	           GROUP BY e.id, e.title, e.date, e.price
	           ORDER BY COUNT(b.id) DESC, e.id ASC
	           LIMIT ?`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TopEvent{}
	for rows.Next() {
		var t model.TopEvent
		if err := rows.Scan(&t.ID, &t.Title, &t.Date, &t.Price, &t.BookingCount, &t.TotalTickets, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentBookings returns the latest bookings with their event and user.
func (r *StatsRepo) RecentBookings(ctx context.Context, limit int) ([]model.RecentBooking, error) {
	const q = `SELECT b.id, b.quantity, b.total_price, b.booking_date,
	                  e.id, e.title, e.date, u.id, u.name, u.email
	           FROM bookings b
	           JOIN events e ON e.id = b.event_id
	           JOIN users u ON u.id = b.user_id
	           ORDER BY b.booking_date DESC, b.id DESC
	           LIMIT ?`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RecentBooking{}
	for rows.Next() {
		var b model.RecentBooking
		if err := rows.Scan(
			&b.ID, &b.Quantity, &b.TotalPrice, &b.BookingDate,
			&b.Event.ID, &b.Event.Title, &b.Event.Date,
			&b.User.ID, &b.User.Name, &b.User.Email,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MonthlyTotals groups bookings made in [from, to) by calendar month.  The
// map is keyed by "YYYY-MM"; months without bookings are absent.
func (r *StatsRepo) MonthlyTotals(ctx context.Context, from, to time.Time) (map[string]model.PeriodTotals, error) {
	const q = `SELECT DATE_FORMAT(booking_date, '%Y-%m') AS month, COUNT(*), COALESCE(SUM(total_price), 0)
	           FROM bookings
	           WHERE booking_date >= ? AND booking_date < ?
	           GROUP BY month`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]model.PeriodTotals)
	for rows.Next() {
		var (
			month string
			t     model.PeriodTotals
		)
		if err := rows.Scan(&month, &t.Bookings, &t.Revenue); err != nil {
			return nil, err
		}
		out[month] = t
	}
	return out, rows.Err()
}
