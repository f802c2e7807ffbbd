package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatsOverview holds the headline numbers of the admin dashboard.
type StatsOverview struct {
	TotalUsers      int             `json:"total_users"`
	TotalEvents     int             `json:"total_events"`
	TotalBookings   int             `json:"total_bookings"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	UpcomingEvents  int             `json:"upcoming_events"`
	PastEvents      int             `json:"past_events"`
	AvgBookingValue decimal.Decimal `json:"avg_booking_value"`
}

// PeriodTotals is the booking count and revenue of a time window.
type PeriodTotals struct {
	Bookings int             `json:"bookings"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type TopEvent struct {
	ID           uint64          `json:"id"`
	Title        string          `json:"title"`
	Date         Date            `json:"date"`
	Price        decimal.Decimal `json:"price"`
	BookingCount int             `json:"booking_count"`
	TotalTickets int             `json:"total_tickets"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type RecentBooking struct {
	ID          uint64          `json:"id"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	BookingDate time.Time       `json:"booking_date"`
	Event       struct {
		ID    uint64 `json:"id"`
		Title string `json:"title"`
		Date  Date   `json:"date"`
	} `json:"event"`
	User struct {
		ID    uint64 `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// DashboardStats is the full admin dashboard payload.
type DashboardStats struct {
	Overview       StatsOverview   `json:"overview"`
	Monthly        PeriodTotals    `json:"monthly"`
	TopEvents      []TopEvent      `json:"top_events"`
	RecentBookings []RecentBooking `json:"recent_bookings"`
}

// MonthlyRevenue is one point of the revenue chart.  Month is "YYYY-MM".
type MonthlyRevenue struct {
	Month    string          `json:"month"`
	Label    string          `json:"label"`
	Revenue  decimal.Decimal `json:"revenue"`
	Bookings int             `json:"bookings"`
}
