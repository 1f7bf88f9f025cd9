package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
)

type Like struct {
	ID            uuid.UUID        `json:"id"`
	SenderID      int64            `json:"sender_id"`
	ReceiverID    int64            `json:"receiver_id"`
	Status        enums.LikeStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	RevealedAt    *time.Time       `json:"revealed_at"`
	ChatStartedAt *time.Time       `json:"chat_started_at"`
}

type IncomingLike struct {
	Like   Like
	Sender PublicProfile
}
