package model

// WebSocket message types
const (
	WSMessageTypeStatus = "status"
	WSMessageTypeError  = "error"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is pushed whenever a job changes status
type WSStatusMessage struct {
	Type          string    `json:"type"`
	JobID         string    `json:"jobId"`
	Status        JobStatus `json:"status"`
	SegmentCount  int       `json:"segmentCount"`
	FinalVideoRef string    `json:"finalVideoRef,omitempty"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
