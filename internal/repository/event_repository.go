package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-booking/internal/model"
)

const eventColumns = `id, title, description, location, date, time, price, image, available_seats, created_by, created_at, updated_at`

// EventRepo manages persistence for events.  Every method resolves its
// connection through the context, so calls made inside TxRunner.WithTx
// participate in that transaction.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Date, &e.Time,
		&e.Price, &e.Image, &e.AvailableSeats, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// GetByID returns the event with the given id, or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	return e, err
}

// GetForUpdate reads the event and takes an exclusive row lock on it that
// is held until the surrounding transaction ends.  Concurrent callers for
// the same event block here until the holder commits or rolls back, and
// then read the committed value.  It must run inside TxRunner.WithTx.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return model.Event{}, ErrNoTx
	}
	e, err := scanEvent(tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	return e, err
}

// DecrementSeats subtracts n from available_seats.  The WHERE guard keeps
// the column from going negative even if a caller skipped the locked
// check; a guard miss is reported as ErrInsufficientSeats.
func (r *EventRepo) DecrementSeats(ctx context.Context, id uint64, n int) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE events SET available_seats = available_seats - ? WHERE id = ? AND available_seats >= ?`,
		n, id, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientSeats
	}
	return nil
}

// IncrementSeats adds n back to available_seats.
func (r *EventRepo) IncrementSeats(ctx context.Context, id uint64, n int) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE events SET available_seats = available_seats + ? WHERE id = ?`, n, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Create inserts e and fills in its generated ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`INSERT INTO events (title, description, location, date, time, price, image, available_seats, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Location, e.Date, e.Time, e.Price, e.Image, e.AvailableSeats, e.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanEvent(q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*e = created
	return nil
}

// Update overwrites every mutable column of e.  Callers that change
// available_seats must hold the row lock from GetForUpdate.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	// clientFoundRows makes an unchanged row still count as affected.
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, location = ?, date = ?, time = ?, price = ?, image = ?, available_seats = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.Location, e.Date, e.Time, e.Price, e.Image, e.AvailableSeats, e.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes the event.  Its bookings are removed by ON DELETE CASCADE.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// List returns one page of events matching q, ordered by date then id.
// q.Page and q.Limit must already be normalised to positive values.
func (r *EventRepo) List(ctx context.Context, q model.EventQuery) (model.EventPage, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = append(where, `(title LIKE ? OR description LIKE ?)`)
		args = append(args, pattern, pattern)
	}
	if q.Date != nil {
		where = append(where, `date = ?`)
		args = append(args, *q.Date)
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		where = append(where, `location LIKE ?`)
		args = append(args, "%"+escapeLike(l)+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	db := conn(ctx, r.db)
	page := model.EventPage{Page: q.Page, Events: []model.Event{}}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+clause, args...).Scan(&page.Total); err != nil {
		return page, err
	}
	page.Pages = (page.Total + q.Limit - 1) / q.Limit

	rows, err := db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events`+clause+` ORDER BY date ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return page, err
		}
		page.Events = append(page.Events, e)
	}
	return page, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
