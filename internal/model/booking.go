package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking records a user's reservation of some quantity of seats on one
// event.  A booking is created only by the reservation transaction and
// removed only by the cancellation transaction; it is never updated.
//
// Fields:
//
//	ID          – primary key identifier.
//	EventID     – event the seats belong to.
//	UserID      – user who made the booking.
//	Quantity    – number of seats, always positive.
//	TotalPrice  – event price at booking time × Quantity, fixed at creation.
//	BookingDate – creation timestamp (UTC).
type Booking struct {
	ID          uint64          `json:"id"`           // bookings.id
	EventID     uint64          `json:"event_id"`     // bookings.event_id
	UserID      uint64          `json:"user_id"`      // bookings.user_id
	Quantity    int             `json:"quantity"`     // bookings.quantity
	TotalPrice  decimal.Decimal `json:"total_price"`  // bookings.total_price
	BookingDate time.Time       `json:"booking_date"` // bookings.booking_date
}

// BookingDetail is a booking joined with the event it belongs to, as
// returned by the "my bookings" listing.
type BookingDetail struct {
	Booking
	Event EventSummary `json:"event"`
}
