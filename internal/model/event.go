package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event represents a bookable occurrence with a finite number of seats.
// AvailableSeats is the only field under concurrency control: it is
// changed by the reservation and cancellation transactions, and by the
// admin update path under the same row lock.  This struct corresponds to
// a row in the `events` table.
//
// Fields:
//
//	ID             – primary key identifier.
//	Title          – display title.
//	Description    – optional long description.
//	Location       – optional venue text.
//	Date           – calendar day of the event.
//	Time           – optional free-form start time ("19:30").
//	Price          – non-negative price per seat, two decimal places.
//	Image          – optional image URL.
//	AvailableSeats – unreserved capacity, never negative.
//	CreatedBy      – admin who created the event (nil once that user is deleted).
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Event struct {
	ID             uint64          `json:"id"`              // events.id
	Title          string          `json:"title"`           // events.title
	Description    *string         `json:"description"`     // events.description (nullable)
	Location       *string         `json:"location"`        // events.location (nullable)
	Date           Date            `json:"date"`            // events.date
	Time           *string         `json:"time"`            // events.time (nullable)
	Price          decimal.Decimal `json:"price"`           // events.price
	Image          *string         `json:"image"`           // events.image (nullable)
	AvailableSeats int             `json:"available_seats"` // events.available_seats
	CreatedBy      *uint64         `json:"created_by"`      // events.created_by (nullable)
	CreatedAt      time.Time       `json:"created_at"`      // events.created_at
	UpdatedAt      time.Time       `json:"updated_at"`      // events.updated_at
}

// EventSummary is the subset of an event embedded in booking listings.
type EventSummary struct {
	ID       uint64          `json:"id"`
	Title    string          `json:"title"`
	Date     Date            `json:"date"`
	Time     *string         `json:"time"`
	Location *string         `json:"location"`
	Price    decimal.Decimal `json:"price"`
}

// EventQuery filters and paginates the public event listing.
type EventQuery struct {
	Search   string // matched against title and description
	Date     *Date  // exact calendar day
	Location string // substring match
	Page     int
	Limit    int
}

// EventPage is one page of the public event listing.
type EventPage struct {
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
	Events []Event `json:"events"`
}
