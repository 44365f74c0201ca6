package storage

import "time"

const (
	KindImage = "image"
	KindCover = "cover"
)

const uploadWindow = 15 * time.Minute

type AttachRequest struct {
	FileName string `json:"file_name" validate:"required,max=200"`
	Kind     string `json:"kind" validate:"omitempty,oneof=image cover"`
}

// Object is a registered file reference. The client uploads the bytes to URL
// before ExpiresAt.
type Object struct {
	ID        string    `json:"id"`
	SpotID    string    `json:"spot_id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}
