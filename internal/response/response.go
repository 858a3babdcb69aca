package response

import "leap/internal/queue"

// SuccessResponse is a plain acknowledgement.
type SuccessResponse struct {
	Message string `json:"message" example:"queue closed"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	// Machine readable code, e.g. QUEUE_FULL
	Code string `json:"code"`

	// Human readable message
	Message string `json:"message"`

	// Optional detail, e.g. the underlying store error
	Details string `json:"details,omitempty"`

	// True when the same request may succeed if retried later
	Retryable bool `json:"retryable,omitempty"`
}

// QueueLengthResponse answers open, join, leave and member removal.
type QueueLengthResponse struct {
	Message     string `json:"message" example:"joined queue"`
	QueueLength int    `json:"queueLength" example:"3"`
}

// QueueStatusResponse is the full view of a queue.
type QueueStatusResponse struct {
	VenueID   string         `json:"venueId"`
	IsOpen    bool           `json:"isOpen"`
	MaxLength int            `json:"maxLength"`
	Length    int            `json:"length"`
	Members   []queue.Member `json:"members"`
}

// PositionResponse tells a member where they stand.
type PositionResponse struct {
	VenueID  string `json:"venueId"`
	Position int    `json:"position" example:"2"`
	Length   int    `json:"length" example:"5"`
}

// TurnTokenResponse carries the token encoded in the waiting screen's QR code.
type TurnTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}
