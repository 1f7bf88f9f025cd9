package auth

import (
	"context"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
)

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

type Identity struct {
	UserID int64
	SID    string
	Role   enums.Role
}

// HasRole reports whether the identity carries one of roles.
func (i Identity) HasRole(roles ...enums.Role) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
