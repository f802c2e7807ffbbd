package service

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking/internal/model"
)

// Listing bounds for the public event catalogue.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// maxPrice bounds prices and booking totals, both DECIMAL(10,2) columns.
var maxPrice = decimal.New(1, 8) // exclusive

var maxTotal = maxPrice.Sub(decimal.New(1, -2)).StringFixed(2)

// EventStore persists events.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Event, error)
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, q model.EventQuery) (model.EventPage, error)
}

// EventInput describes a new event.
type EventInput struct {
	Title          string          `json:"title" validate:"required,max=255"`
	Description    *string         `json:"description"`
	Location       *string         `json:"location" validate:"omitempty,max=255"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	Time           *string         `json:"time" validate:"omitempty,max=50"`
	Price          decimal.Decimal `json:"price"`
	Image          *string         `json:"image" validate:"omitempty,url,max=512"`
	AvailableSeats int             `json:"available_seats" validate:"gte=0"`
}

// EventPatch changes the fields that are set and leaves the rest alone.
type EventPatch struct {
	Title          *string          `json:"title" validate:"omitempty,max=255"`
	Description    *string          `json:"description"`
	Location       *string          `json:"location" validate:"omitempty,max=255"`
	Date           *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time           *string          `json:"time" validate:"omitempty,max=50"`
	Price          *decimal.Decimal `json:"price"`
	Image          *string          `json:"image" validate:"omitempty,url,max=512"`
	AvailableSeats *int             `json:"available_seats" validate:"omitempty,gte=0"`
}

// EventService implements the public catalogue and the admin event CRUD.
type EventService struct {
	tx     TxRunner
	events EventStore
	logger echo.Logger
}

func NewEventService(tx TxRunner, events EventStore, logger echo.Logger) *EventService {
	return &EventService{tx: tx, events: events, logger: logger}
}

func checkPrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return newError(ErrValidation, "price must be at least 0")
	case !p.Equal(p.Round(2)):
		return newError(ErrValidation, "price must have at most 2 decimal places")
	case p.GreaterThanOrEqual(maxPrice):
		return newError(ErrValidation, "price is too large")
	}
	return nil
}

// List returns one page of the catalogue.  Page defaults to 1 and Limit
// to DefaultPageSize; Limit is capped at MaxPageSize.
func (s *EventService) List(ctx context.Context, q model.EventQuery) (model.EventPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	page, err := s.events.List(ctx, q)
	return page, translate(ctx, err)
}

func (s *EventService) Get(ctx context.Context, id uint64) (model.Event, error) {
	if id == 0 {
		return model.Event{}, newError(ErrValidation, "id is required")
	}
	e, err := s.events.GetByID(ctx, id)
	return e, translate(ctx, err)
}

// Create stores a new event owned by adminID.
func (s *EventService) Create(ctx context.Context, adminID uint64, in EventInput) (model.Event, error) {
	if err := Validate(in); err != nil {
		return model.Event{}, err
	}
	if err := checkPrice(in.Price); err != nil {
		return model.Event{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return model.Event{}, newError(ErrValidation, "title is required")
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return model.Event{}, wrapError(ErrValidation, err, "date must be a date in YYYY-MM-DD format")
	}
	e := model.Event{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       in.Location,
		Date:           date,
		Time:           in.Time,
		Price:          in.Price,
		Image:          in.Image,
		AvailableSeats: in.AvailableSeats,
	}
	if adminID != 0 {
		e.CreatedBy = &adminID
	}
	if err := s.events.Create(ctx, &e); err != nil {
		return model.Event{}, translate(ctx, err)
	}
	s.logger.Infoj(log.JSON{"msg": "event created", "event_id": e.ID, "admin_id": adminID, "seats": e.AvailableSeats})
	return e, nil
}

// Update applies patch to the event.  The row is locked first, the same
// lock reservations take, so a new seat count never interleaves with an
// in-flight reservation or cancellation.
func (s *EventService) Update(ctx context.Context, id uint64, patch EventPatch) (model.Event, error) {
	if id == 0 {
		return model.Event{}, newError(ErrValidation, "id is required")
	}
	if err := Validate(patch); err != nil {
		return model.Event{}, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Event{}, newError(ErrValidation, "title must not be empty")
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return model.Event{}, err
		}
	}
	var date *model.Date
	if patch.Date != nil {
		d, err := model.ParseDate(*patch.Date)
		if err != nil {
			return model.Event{}, wrapError(ErrValidation, err, "date must be a date in YYYY-MM-DD format")
		}
		date = &d
	}

	var (
		updated   model.Event
		seatsFrom int
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.events.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		seatsFrom = e.AvailableSeats
		applyPatch(&e, patch, date)
		if err := s.events.Update(ctx, &e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return model.Event{}, translate(ctx, err)
	}
	fields := log.JSON{"msg": "event updated", "event_id": id}
	if patch.AvailableSeats != nil {
		fields["seats_from"] = seatsFrom
		fields["seats_to"] = updated.AvailableSeats
	}
	s.logger.Infoj(fields)
	return updated, nil
}

func applyPatch(e *model.Event, p EventPatch, date *model.Date) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = p.Description
	}
	if p.Location != nil {
		e.Location = p.Location
	}
	if date != nil {
		e.Date = *date
	}
	if p.Time != nil {
		e.Time = p.Time
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.Image != nil {
		e.Image = p.Image
	}
	if p.AvailableSeats != nil {
		e.AvailableSeats = *p.AvailableSeats
	}
}

// Delete removes the event together with its bookings.
func (s *EventService) Delete(ctx context.Context, id uint64) error {
	if id == 0 {
		return newError(ErrValidation, "id is required")
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return translate(ctx, err)
	}
	s.logger.Infoj(log.JSON{"msg": "event deleted", "event_id": id})
	return nil
}
