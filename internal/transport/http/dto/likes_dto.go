package dto

import "time"

type LikeResponse struct {
	ID            string     `json:"id"`
	ReceiverID    int64      `json:"receiver_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	RevealedAt    *time.Time `json:"revealed_at,omitempty"`
	ChatStartedAt *time.Time `json:"chat_started_at,omitempty"`
}

type SendLikeResponse struct {
	Success   bool         `json:"success"`
	Like      LikeResponse `json:"like"`
	LikesLeft int          `json:"likes_left"`
}

// IncomingLikeResponse hides the sender until the like is revealed.
type IncomingLikeResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Blurred   bool             `json:"blurred"`
	Sender    *ProfileResponse `json:"sender,omitempty"`
}

type IncomingLikesResponse struct {
	Success    bool                   `json:"success"`
	TotalCount int                    `json:"total_count"`
	Likes      []IncomingLikeResponse `json:"likes"`
}

type OutgoingLikesResponse struct {
	Success    bool           `json:"success"`
	TotalCount int            `json:"total_count"`
	Likes      []LikeResponse `json:"likes"`
}

type LikeTransitionResponse struct {
	Success   bool             `json:"success"`
	Like      LikeResponse     `json:"like"`
	Sender    *ProfileResponse `json:"sender,omitempty"`
	CoinsLeft *int64           `json:"coins_left,omitempty"`
}
