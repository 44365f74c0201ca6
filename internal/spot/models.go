package spot

import "time"

const (
	CategoryCovered = "covered"
	CategoryOpen    = "open"
	CategoryGarage  = "garage"
	CategoryStreet  = "street"
)

const (
	SortNewest    = "newest"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortRating    = "rating"
	SortDistance  = "distance"
)

type Spot struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zip_code"`
	Country      string    `json:"country"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	PricePerHour float64   `json:"price_per_hour"`
	PricePerDay  *float64  `json:"price_per_day"`
	TotalSpots   int       `json:"total_spots"`
	Category     string    `json:"spot_type"`
	Amenities    []string  `json:"amenities"`
	Images       []string  `json:"images"`
	IsActive     bool      `json:"is_active"`
	RatingAvg    float64   `json:"rating_avg"`
	TotalReviews int       `json:"total_reviews"`
	OwnerName    string    `json:"owner_name"`
	OwnerEmail   string    `json:"owner_email,omitempty"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateSpotRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description"`
	Address      string   `json:"address" validate:"required"`
	City         string   `json:"city" validate:"required"`
	State        string   `json:"state" validate:"required"`
	ZipCode      string   `json:"zip_code"`
	Country      string   `json:"country"`
	Latitude     float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64  `json:"longitude" validate:"gte=-180,lte=180"`
	PricePerHour float64  `json:"price_per_hour" validate:"gte=0"`
	PricePerDay  *float64 `json:"price_per_day" validate:"omitempty,gte=0"`
	TotalSpots   int      `json:"total_spots" validate:"gte=1"`
	Category     string   `json:"spot_type" validate:"required,oneof=covered open garage street"`
	Amenities    []string `json:"amenities"`
}

// Filter narrows the active listing. A nil MaxPrice means no upper bound.
// Lat and Lng are only used by SortDistance.
type Filter struct {
	Location string
	MinPrice float64
	MaxPrice *float64
	Category string
	Sort     string
	Lat      *float64
	Lng      *float64
}
