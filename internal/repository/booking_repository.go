package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-booking/internal/model"
)

const bookingColumns = `id, event_id, user_id, quantity, total_price, booking_date`

// BookingRepo manages persistence for bookings.  Rows are only inserted by
// the reservation transaction and only deleted by the cancellation one.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Quantity, &b.TotalPrice, &b.BookingDate)
	return b, err
}

// Create inserts b and assigns its generated ID.  BookingDate must be set
// by the caller.  A foreign key miss on event_id maps to ErrEventNotFound
// and a total_price that does not fit the column to ErrOutOfRange.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO bookings (event_id, user_id, quantity, total_price, booking_date) VALUES (?, ?, ?, ?, ?)`,
		b.EventID, b.UserID, b.Quantity, b.TotalPrice, b.BookingDate)
	switch {
	case isMissingReference(err):
		return ErrEventNotFound
	case isOutOfRange(err):
		return ErrOutOfRange
	case err != nil:
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns the booking with the given id, or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// Delete removes the booking.  When no row was deleted, because another
// cancellation got there first, it returns ErrBookingNotFound.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByUser returns the user's bookings joined with their events, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	const q = `SELECT b.id, b.event_id, b.user_id, b.quantity, b.total_price, b.booking_date,
	                  e.id, e.title, e.date, e.time, e.location, e.price
	           FROM bookings b
	           JOIN events e ON e.id = b.event_id
	           WHERE b.user_id = ?
	           ORDER BY b.booking_date DESC, b.id DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var d model.BookingDetail
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.UserID, &d.Quantity, &d.TotalPrice, &d.BookingDate,
			&d.Event.ID, &d.Event.Title, &d.Event.Date, &d.Event.Time, &d.Event.Location, &d.Event.Price,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// EventBooking is a booking row with the booker's identity, as listed to
// admins for one event.
type EventBooking struct {
	model.Booking
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// ListByEvent returns every booking of the event, newest first.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]EventBooking, error) {
	const q = `SELECT b.id, b.event_id, b.user_id, b.quantity, b.total_price, b.booking_date, u.name, u.email
	           FROM bookings b
	           JOIN users u ON u.id = b.user_id
	           WHERE b.event_id = ?
	           ORDER BY b.booking_date DESC, b.id DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EventBooking{}
	for rows.Next() {
		var b EventBooking
		if err := rows.Scan(
			&b.ID, &b.EventID, &b.UserID, &b.Quantity, &b.TotalPrice, &b.BookingDate, &b.UserName, &b.UserEmail,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
