// Package service holds the booking transaction manager and the other
// use cases behind the HTTP handlers.  Services validate input before any
// database work and report failures through the error taxonomy in
// errors.go.
package service

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking/internal/clock"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

// TxRunner runs fn inside one database transaction carried by the context
// passed to it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingEvents is the part of the event store the booking transactions use.
type BookingEvents interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Event, error)
	DecrementSeats(ctx context.Context, id uint64, n int) error
	IncrementSeats(ctx context.Context, id uint64, n int) error
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	Delete(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]repository.EventBooking, error)
}

// Publisher announces committed bookings to other systems.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

const publishTimeout = 2 * time.Second

// ReserveInput is the validated input of the reservation transaction.
type ReserveInput struct {
	EventID  uint64 `json:"event_id" validate:"required"`
	UserID   uint64 `json:"user_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// CancelInput is the validated input of the cancellation transaction.
type CancelInput struct {
	BookingID        uint64 `json:"booking_id" validate:"required"`
	RequesterID      uint64 `json:"requester_id" validate:"required"`
	RequesterIsAdmin bool   `json:"-"`
}

// BookingService reserves and cancels seats.  Mutual exclusion between
// concurrent operations on one event comes only from the row lock taken by
// BookingEvents.GetForUpdate, so any number of server processes can share
// the database.
type BookingService struct {
	tx        TxRunner
	events    BookingEvents
	bookings  BookingStore
	publisher Publisher
	clock     clock.Clock
	logger    echo.Logger
	timeout   time.Duration
}

// NewBookingService wires a BookingService.  timeout bounds each reservation
// or cancellation end to end; zero disables it.
func NewBookingService(tx TxRunner, events BookingEvents, bookings BookingStore, pub Publisher,
	clk clock.Clock, logger echo.Logger, timeout time.Duration) *BookingService {
	return &BookingService{
		tx:        tx,
		events:    events,
		bookings:  bookings,
		publisher: pub,
		clock:     clk,
		logger:    logger,
		timeout:   timeout,
	}
}

func (s *BookingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Reserve books in.Quantity seats on in.EventID for in.UserID.
//
// The event row is locked, availability is re-checked under the lock, the
// booking is inserted at the locked price and the counter is decremented,
// all in one transaction.  A rejected reservation leaves no trace.
func (s *BookingService) Reserve(ctx context.Context, in ReserveInput) (model.Booking, error) {
	if err := Validate(in); err != nil {
		return model.Booking{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		booking model.Booking
		event   model.Event
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.events.GetForUpdate(ctx, in.EventID)
		if err != nil {
			return err
		}
		if e.AvailableSeats < in.Quantity {
			return newError(ErrInsufficientSeats, "only %d seats available, %d requested", e.AvailableSeats, in.Quantity)
		}
		total := e.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		if total.GreaterThanOrEqual(maxPrice) {
			return newError(ErrValidation, "total price %s exceeds the maximum of %s", total.StringFixed(2), maxTotal)
		}
		booking = model.Booking{
			EventID:     e.ID,
			UserID:      in.UserID,
			Quantity:    in.Quantity,
			TotalPrice:  total,
			BookingDate: s.clock.Now().Truncate(time.Second),
		}
		if err := s.bookings.Create(ctx, &booking); err != nil {
			return err
		}
		if err := s.events.DecrementSeats(ctx, e.ID, in.Quantity); err != nil {
			return err
		}
		e.AvailableSeats -= in.Quantity
		event = e
		return nil
	})
	if err != nil {
		err = translate(ctx, err)
		s.logFailure("reserve", err, log.JSON{"event_id": in.EventID, "user_id": in.UserID, "quantity": in.Quantity})
		return model.Booking{}, err
	}

	s.logger.Infoj(log.JSON{
		"msg": "booking reserved", "booking_id": booking.ID, "event_id": booking.EventID,
		"user_id": booking.UserID, "quantity": booking.Quantity, "total_price": booking.TotalPrice.StringFixed(2),
		"seats_left": event.AvailableSeats,
	})
	s.publish(ctx, func(ctx context.Context) error {
		return s.publisher.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
			BookingID:   booking.ID,
			UserID:      booking.UserID,
			EventID:     booking.EventID,
			EventTitle:  event.Title,
			EventDate:   event.Date.String(),
			Quantity:    booking.Quantity,
			TotalPrice:  booking.TotalPrice.StringFixed(2),
			SeatsLeft:   event.AvailableSeats,
			ConfirmedAt: booking.BookingDate.Format(time.RFC3339),
		})
	})
	return booking, nil
}

// Cancel removes a booking and returns its seats to the event.  Only the
// booking's owner or an admin may cancel.  When two cancellations of the
// same booking race, the loser gets ErrNotFound and changes nothing.
func (s *BookingService) Cancel(ctx context.Context, in CancelInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	fields := log.JSON{"booking_id": in.BookingID, "requester_id": in.RequesterID}
	b, err := s.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		err = translate(ctx, err)
		s.logFailure("cancel", err, fields)
		return err
	}
	if !in.RequesterIsAdmin && b.UserID != in.RequesterID {
		err := newError(ErrUnauthorized, "not allowed to cancel this booking")
		s.logFailure("cancel", err, fields)
		return err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.GetForUpdate(ctx, b.EventID); err != nil {
			return err
		}
		if err := s.events.IncrementSeats(ctx, b.EventID, b.Quantity); err != nil {
			return err
		}
		return s.bookings.Delete(ctx, b.ID)
	})
	if err != nil {
		err = translate(ctx, err)
		if Kind(err) == KindNotFound {
			err = wrapError(ErrNotFound, err, "booking not found")
		}
		s.logFailure("cancel", err, fields)
		return err
	}

	s.logger.Infoj(log.JSON{
		"msg": "booking cancelled", "booking_id": b.ID, "event_id": b.EventID,
		"user_id": b.UserID, "quantity": b.Quantity, "cancelled_by": in.RequesterID,
	})
	s.publish(ctx, func(ctx context.Context) error {
		return s.publisher.PublishBookingCancelled(ctx, queue.BookingCancelledEvent{
			BookingID:   b.ID,
			UserID:      b.UserID,
			EventID:     b.EventID,
			Quantity:    b.Quantity,
			TotalPrice:  b.TotalPrice.StringFixed(2),
			CancelledBy: in.RequesterID,
			CancelledAt: s.clock.Now().Format(time.RFC3339),
		})
	})
	return nil
}

// Get returns one booking if the requester owns it or is an admin.
func (s *BookingService) Get(ctx context.Context, bookingID, requesterID uint64, requesterIsAdmin bool) (model.Booking, error) {
	if bookingID == 0 {
		return model.Booking{}, newError(ErrValidation, "booking_id is required")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, translate(ctx, err)
	}
	if !requesterIsAdmin && b.UserID != requesterID {
		return model.Booking{}, newError(ErrUnauthorized, "not allowed to view this booking")
	}
	return b, nil
}

// ListForUser returns the user's bookings with their events, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	if userID == 0 {
		return nil, newError(ErrValidation, "user_id is required")
	}
	out, err := s.bookings.ListByUser(ctx, userID)
	return out, translate(ctx, err)
}

// ListForEvent returns every booking of an event for the admin views.
func (s *BookingService) ListForEvent(ctx context.Context, eventID uint64) ([]repository.EventBooking, error) {
	if eventID == 0 {
		return nil, newError(ErrValidation, "event_id is required")
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, translate(ctx, err)
	}
	out, err := s.bookings.ListByEvent(ctx, eventID)
	return out, translate(ctx, err)
}

// publish runs send after a commit.  The commit stands whatever happens,
// so failures are only logged.
func (s *BookingService) publish(ctx context.Context, send func(ctx context.Context) error) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		s.logger.Warnj(log.JSON{"msg": "publish booking event failed", "error": err.Error()})
	}
}

func (s *BookingService) logFailure(op string, err error, fields log.JSON) {
	fields["op"] = op
	fields["kind"] = string(Kind(err))
	fields["error"] = err.Error()
	switch Kind(err) {
	case KindInternal, KindTransient:
		fields["msg"] = "booking operation failed"
		s.logger.Errorj(fields)
	case KindCanceled:
		fields["msg"] = "booking operation abandoned by client"
		s.logger.Infoj(fields)
	default:
		fields["msg"] = "booking operation rejected"
		s.logger.Infoj(fields)
	}
}
