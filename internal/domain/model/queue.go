package model

import (
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
)

type QueueEntry struct {
	UserID     int64            `json:"user_id"`
	Gender     enums.Gender     `json:"gender"`
	LookingFor enums.LookingFor `json:"looking_for"`
	JoinedAt   time.Time        `json:"joined_at"`
}

func (e QueueEntry) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.JoinedAt) > ttl
}

// QueueFilter narrows a candidate scan. Results are ordered oldest first.
type QueueFilter struct {
	ExcludeUserID int64
	Gender        *enums.Gender
	// AcceptedBy keeps only entries whose looking_for is one of these.
	AcceptedBy    []enums.LookingFor
	JoinedAfter   time.Time
	Limit         int
}
