package booking

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	PaymentPaid = "paid"
)

// EventCreated is published to the spot owner after a booking is stored.
const EventCreated = "booking.created"

type Booking struct {
	ID            string       `json:"id"`
	SpotID        string       `json:"parking_spot_id"`
	UserID        string       `json:"user_id"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time"`
	TotalPrice    float64      `json:"total_price"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"payment_status"`
	PaymentMethod string       `json:"payment_method"`
	VehicleNumber string       `json:"vehicle_number"`
	Notes         string       `json:"notes"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Spot          *SpotSummary `json:"parking_spot,omitempty"`
}

// SpotSummary is the part of a parking spot shown next to a booking.
type SpotSummary struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"owner_id"`
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	PricePerHour float64  `json:"price_per_hour"`
	Images       []string `json:"images"`
}

// CreateRequest is the booking form. Any client-computed price is ignored.
type CreateRequest struct {
	SpotID         string    `json:"parking_spot_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	VehicleNumber  string    `json:"vehicle_number"`
	Notes          string    `json:"notes"`
	IdempotencyKey string    `json:"-"`
}

type QuoteRequest struct {
	SpotID    string    `json:"parking_spot_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type Stats struct {
	Total      int     `json:"total"`
	Active     int     `json:"active"`
	Completed  int     `json:"completed"`
	TotalSpent float64 `json:"total_spent"`
}

type Dashboard struct {
	Bookings []Booking `json:"bookings"`
	Stats    Stats     `json:"stats"`
}

// Summarize computes driver dashboard stats. Active counts confirmed and active bookings.
func Summarize(bookings []Booking) Stats {
	stats := Stats{Total: len(bookings)}
	for _, b := range bookings {
		switch b.Status {
		case StatusConfirmed, StatusActive:
			stats.Active++
		case StatusCompleted:
			stats.Completed++
		}
		stats.TotalSpent += b.TotalPrice
	}
	return stats
}

// FilterByStatus keeps bookings in the given dashboard tab. "active" includes
// confirmed bookings; empty or "all" keeps everything.
func FilterByStatus(bookings []Booking, status string) []Booking {
	if status == "" || status == "all" {
		return bookings
	}
	out := []Booking{}
	for _, b := range bookings {
		if b.Status == status || (status == StatusActive && b.Status == StatusConfirmed) {
			out = append(out, b)
		}
	}
	return out
}
