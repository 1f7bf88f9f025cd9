package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	authsvc "github.com/ivankudzin/blinddate/internal/services/auth"
)

const (
	sessionPrefix        = "auth:sessions:"
	refreshPrefix        = "auth:refresh:"
	sessionRefreshPrefix = "auth:session_refresh:"
	userSessionsPrefix   = "auth:user_sessions:"
)

// SessionRepo keeps refresh sessions for the auth service. Every session
// owns four keys that share one TTL: the session hash, the refresh hash, the
// pointer from session to its current refresh token and the per-user index.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID <= 0 {
		return authsvc.ErrInvalidInput
	}

	pipe := r.client.TxPipeline()
	writeSession(ctx, pipe, session, refreshToken)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create redis session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	values, err := r.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("get session hash: %w", err)
	}
	if len(values) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
	}

	session, err := parseSessionRecord(values)
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	session.SID = sid
	return session, nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	values, err := r.client.HGetAll(ctx, refreshKey(refreshToken)).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("get refresh hash: %w", err)
	}
	if len(values) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}

	session, err := parseSessionRecord(values)
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	session.SID = strings.TrimSpace(values["sid"])
	if session.SID == "" {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	return session, nil
}

// RotateRefresh swaps the refresh token of a session. The old token is
// watched so two concurrent rotations cannot both succeed.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		values, err := tx.HGetAll(ctx, refreshKey(oldRefreshToken)).Result()
		if err != nil {
			return fmt.Errorf("get refresh hash: %w", err)
		}
		if len(values) == 0 {
			return authsvc.ErrRefreshNotFound
		}
		session, err := parseSessionRecord(values)
		if err != nil {
			return err
		}
		session.SID = strings.TrimSpace(values["sid"])
		if session.SID == "" || (sid != "" && sid != session.SID) {
			return authsvc.ErrRefreshNotFound
		}
		session.ExpiresAt = expiresAt

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, refreshKey(oldRefreshToken))
			writeSession(ctx, pipe, session, newRefreshToken)
			return nil
		})
		return err
	}, refreshKey(oldRefreshToken))
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return authsvc.ErrRefreshNotFound
		}
		if errors.Is(err, authsvc.ErrRefreshNotFound) || errors.Is(err, authsvc.ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	userID, err := r.client.HGet(ctx, sessionKey(sid), "user_id").Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("load session owner: %w", err)
	}
	refreshToken, err := r.client.Get(ctx, sessionRefreshKey(sid)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("load session refresh pointer: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sid), sessionRefreshKey(sid))
	if refreshToken != "" {
		pipe.Del(ctx, refreshKey(refreshToken))
	}
	if userID > 0 {
		pipe.SRem(ctx, userSessionsKey(userID), sid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return authsvc.ErrInvalidInput
	}

	sids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete user sessions key: %w", err)
	}
	return nil
}

func writeSession(ctx context.Context, pipe goredis.Pipeliner, session authsvc.SessionRecord, refreshToken string) {
	ttl := ttlFor(session.ExpiresAt)
	fields := map[string]any{
		"user_id":    session.UserID,
		"role":       string(session.Role),
		"expires_at": session.ExpiresAt.Unix(),
	}

	pipe.HSet(ctx, sessionKey(session.SID), fields)
	pipe.Expire(ctx, sessionKey(session.SID), ttl)

	refreshFields := map[string]any{"sid": session.SID}
	for k, v := range fields {
		refreshFields[k] = v
	}
	pipe.HSet(ctx, refreshKey(refreshToken), refreshFields)
	pipe.Expire(ctx, refreshKey(refreshToken), ttl)

	pipe.Set(ctx, sessionRefreshKey(session.SID), refreshToken, ttl)
	pipe.SAdd(ctx, userSessionsKey(session.UserID), session.SID)
	pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
}

func parseSessionRecord(values map[string]string) (authsvc.SessionRecord, error) {
	userID, err := strconv.ParseInt(values["user_id"], 10, 64)
	if err != nil || userID <= 0 {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}

	expiresUnix, err := strconv.ParseInt(values["expires_at"], 10, 64)
	if err != nil {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}

	return authsvc.SessionRecord{
		UserID:    userID,
		Role:      enums.Role(values["role"]),
		ExpiresAt: time.Unix(expiresUnix, 0).UTC(),
	}, nil
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

func sessionKey(sid string) string {
	return sessionPrefix + sid
}

func refreshKey(token string) string {
	return refreshPrefix + token
}

func sessionRefreshKey(sid string) string {
	return sessionRefreshPrefix + sid
}

func userSessionsKey(userID int64) string {
	return userSessionsPrefix + strconv.FormatInt(userID, 10)
}
