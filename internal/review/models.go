package review

import "time"

const listLimit = 10

type Review struct {
	ID           string    `json:"id"`
	SpotID       string    `json:"parking_spot_id"`
	UserID       string    `json:"user_id"`
	BookingID    string    `json:"booking_id,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	ReviewerName string    `json:"reviewer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateRequest struct {
	Rating    int    `json:"rating" validate:"gte=1,lte=5"`
	Comment   string `json:"comment" validate:"max=2000"`
	BookingID string `json:"booking_id"`
}
