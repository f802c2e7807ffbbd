// Package queue defines message payloads exchanged over the message broker,
// the publisher that sends them and the consumer that records them.
package queue

// Queue names.  Both queues are durable and use the default exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a reservation commits.  It
// carries enough for downstream consumers to log, notify or feed analytics
// without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	EventDate   string `json:"event_date"`
	Quantity    int    `json:"quantity"`
	TotalPrice  string `json:"total_price"`
	SeatsLeft   int    `json:"seats_left"`
	ConfirmedAt string `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a cancellation commits.
type BookingCancelledEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	EventID     uint64 `json:"event_id"`
	Quantity    int    `json:"quantity"`
	TotalPrice  string `json:"total_price"`
	CancelledBy uint64 `json:"cancelled_by"`
	CancelledAt string `json:"cancelled_at"`
}
