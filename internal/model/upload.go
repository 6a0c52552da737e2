package model

import "time"

// UploadImageResponse represents the response for an image upload
type UploadImageResponse struct {
	Key       string    `json:"key"`
	Kind      ImageKind `json:"kind"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
