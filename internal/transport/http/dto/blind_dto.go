package dto

import "time"

type BlindMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// BlindSessionResponse never carries user ids. Partner is only present for
// the participant who paid for the extension.
type BlindSessionResponse struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	StartTime   time.Time        `json:"start_time"`
	ExpiresAt   time.Time        `json:"expires_at"`
	TimeLeftSec int64            `json:"time_left_sec"`
	Extended    bool             `json:"extended"`
	Partner     *ProfileResponse `json:"partner,omitempty"`
}

type BlindJoinResponse struct {
	Success        bool                  `json:"success"`
	Status         string                `json:"status"`
	Session        *BlindSessionResponse `json:"session,omitempty"`
	JoinedAt       *time.Time            `json:"joined_at,omitempty"`
	QueueExpiresAt *time.Time            `json:"queue_expires_at,omitempty"`
}

type BlindStatusResponse struct {
	Success        bool                  `json:"success"`
	State          string                `json:"state"`
	Session        *BlindSessionResponse `json:"session,omitempty"`
	JoinedAt       *time.Time            `json:"joined_at,omitempty"`
	QueueExpiresAt *time.Time            `json:"queue_expires_at,omitempty"`
}

type BlindMessageResponse struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	FromMe    bool      `json:"from_me"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type BlindSendMessageResponse struct {
	Success bool                 `json:"success"`
	Message BlindMessageResponse `json:"message"`
}

type BlindMessagesResponse struct {
	Success  bool                   `json:"success"`
	Session  BlindSessionResponse   `json:"session"`
	Messages []BlindMessageResponse `json:"messages"`
}

type BlindExtendResponse struct {
	Success   bool                 `json:"success"`
	Session   BlindSessionResponse `json:"session"`
	CoinsLeft int64                `json:"coins_left"`
}

type BlindEndResponse struct {
	Success bool                 `json:"success"`
	Session BlindSessionResponse `json:"session"`
}
