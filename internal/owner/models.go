package owner

import (
	"parkease/internal/booking"
	"parkease/internal/spot"
)

type Stats struct {
	TotalSpots    int     `json:"total_spots"`
	ActiveSpots   int     `json:"active_spots"`
	TotalBookings int     `json:"total_bookings"`
	TotalRevenue  float64 `json:"total_revenue"`
}

type Inventory struct {
	Spots    []spot.Spot       `json:"spots"`
	Bookings []booking.Booking `json:"bookings"`
	Stats    Stats             `json:"stats"`
}

// Summarize computes inventory stats. Revenue is the sum of all booking prices.
func Summarize(spots []spot.Spot, bookings []booking.Booking) Stats {
	stats := Stats{TotalSpots: len(spots), TotalBookings: len(bookings)}
	for _, sp := range spots {
		if sp.IsActive {
			stats.ActiveSpots++
		}
	}
	for _, b := range bookings {
		stats.TotalRevenue += b.TotalPrice
	}
	return stats
}
