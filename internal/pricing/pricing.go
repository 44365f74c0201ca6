// Package pricing computes booking charges from a spot's hourly rate.
package pricing

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidInterval = errors.New("end time must be after start time")
	ErrNegativeRate    = errors.New("hourly rate must not be negative")
)

type Quote struct {
	Hours      int     `json:"hours"`
	HourlyRate float64 `json:"hourly_rate"`
	Total      float64 `json:"total_price"`
}

// Hours returns the billable hours between start and end, rounding any
// partial hour up. It returns 0 when end is not after start.
func Hours(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(time.Hour)))
}

// Calculate prices the interval [start, end) at hourlyRate.
// Zero or negative durations are rejected rather than priced.
func Calculate(start, end time.Time, hourlyRate float64) (Quote, error) {
	if hourlyRate < 0 {
		return Quote{}, ErrNegativeRate
	}
	hours := Hours(start, end)
	if hours == 0 {
		return Quote{}, ErrInvalidInterval
	}
	return Quote{
		Hours:      hours,
		HourlyRate: hourlyRate,
		Total:      roundCents(float64(hours) * hourlyRate),
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
