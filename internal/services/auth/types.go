package auth

import (
	"errors"
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnknownUser     = errors.New("unknown user")
	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
)

// SessionRecord is one signed-in device. Role is copied from the user
// directory when the session opens and checked against every access token.
type SessionRecord struct {
	SID       string
	UserID    int64
	Role      enums.Role
	ExpiresAt time.Time
}

func (r SessionRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type AccessClaims struct {
	UserID    int64
	SID       string
	Role      enums.Role
	ExpiresAt time.Time
}

func (c AccessClaims) Identity() Identity {
	return Identity{UserID: c.UserID, SID: c.SID, Role: c.Role}
}

type Me struct {
	ID   int64
	Role enums.Role
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	Me            Me
}

// ExpiresIn is the access token lifetime left at now, never negative.
func (r AuthResult) ExpiresIn(now time.Time) time.Duration {
	if left := r.AccessExpires.Sub(now); left > 0 {
		return left
	}
	return 0
}
