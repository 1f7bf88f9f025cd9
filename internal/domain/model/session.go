package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
)

type BlindSession struct {
	ID         uuid.UUID           `json:"id"`
	User1ID    int64               `json:"user1_id"`
	User2ID    int64               `json:"user2_id"`
	Status     enums.SessionStatus `json:"status"`
	StartTime  time.Time           `json:"start_time"`
	ExpiresAt  time.Time           `json:"expires_at"`
	Extended   bool                `json:"extended"`
	ExtendedBy *int64              `json:"extended_by"`
}

func (s BlindSession) HasParticipant(userID int64) bool {
	return userID > 0 && (s.User1ID == userID || s.User2ID == userID)
}

// Partner returns the other participant, or 0 when userID is not in the session.
func (s BlindSession) Partner(userID int64) int64 {
	switch userID {
	case s.User1ID:
		return s.User2ID
	case s.User2ID:
		return s.User1ID
	default:
		return 0
	}
}

type BlindMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Seq       int64     `json:"seq"`
	SenderID  int64     `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionExtension is a compare-and-set on the session status.
type SessionExtension struct {
	SessionID   uuid.UUID
	RequesterID int64
	From        enums.SessionStatus
	ExpiresAt   time.Time
	Now         time.Time
}
