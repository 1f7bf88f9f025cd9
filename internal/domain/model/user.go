package model

import (
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
)

type User struct {
	ID          int64      `json:"id"`
	DisplayName string     `json:"display_name"`
	Role        enums.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DatingProfile is the part of a user the matchmaking queue reads.
type DatingProfile struct {
	UserID     int64            `json:"user_id"`
	Gender     enums.Gender     `json:"gender"`
	LookingFor enums.LookingFor `json:"looking_for"`
	Complete   bool             `json:"complete"`
}

func (p DatingProfile) Ready() bool {
	return p.Complete && p.Gender.Valid() && p.LookingFor.Valid()
}

// PublicProfile is what a partner sees after a reveal.
type PublicProfile struct {
	UserID      int64        `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Age         int          `json:"age"`
	Gender      enums.Gender `json:"gender"`
	Faculty     string       `json:"faculty"`
	Bio         string       `json:"bio"`
	AvatarURL   string       `json:"avatar_url"`
}
