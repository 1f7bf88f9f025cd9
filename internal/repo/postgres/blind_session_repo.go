package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

const sessionColumns = `id, user1_id, user2_id, status, start_time, expires_at, extended, extended_by`

type BlindSessionRepo struct {
	pool *pgxpool.Pool
}

func NewBlindSessionRepo(pool *pgxpool.Pool) *BlindSessionRepo {
	return &BlindSessionRepo{pool: pool}
}

func (r *BlindSessionRepo) GetSession(ctx context.Context, id uuid.UUID) (model.BlindSession, error) {
	if r.pool == nil {
		return model.BlindSession{}, errors.New("postgres pool is nil")
	}

	session, err := scanSession(r.pool.QueryRow(ctx, `
SELECT `+sessionColumns+`
FROM blind_sessions
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BlindSession{}, model.ErrRecordNotFound
		}
		return model.BlindSession{}, fmt.Errorf("get blind session: %w", err)
	}
	return session, nil
}

func (r *BlindSessionRepo) CurrentForUser(ctx context.Context, userID int64) (model.BlindSession, error) {
	if r.pool == nil {
		return model.BlindSession{}, errors.New("postgres pool is nil")
	}

	session, err := scanSession(r.pool.QueryRow(ctx, `
SELECT `+sessionColumns+`
FROM blind_sessions
WHERE (user1_id = $1 OR user2_id = $1)
	AND status IN ('active', 'extended')
ORDER BY start_time DESC
LIMIT 1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BlindSession{}, model.ErrRecordNotFound
		}
		return model.BlindSession{}, fmt.Errorf("get current blind session: %w", err)
	}
	return session, nil
}

func (r *BlindSessionRepo) MarkEnded(ctx context.Context, id uuid.UUID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE blind_sessions
SET status = 'ended', updated_at = NOW()
WHERE id = $1
	AND status IN ('active', 'extended')
`, id)
	if err != nil {
		return false, fmt.Errorf("end blind session: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := r.GetSession(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *BlindSessionRepo) Extend(ctx context.Context, ext model.SessionExtension) (model.BlindSession, error) {
	current, err := r.GetSession(ctx, ext.SessionID)
	if err != nil {
		return model.BlindSession{}, err
	}

	var extended model.BlindSession
	err = WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUsers(ctx, tx, current.User1ID, current.User2ID); err != nil {
			return err
		}

		if ext.From == enums.SessionStatusEnded {
			for _, userID := range []int64{current.User1ID, current.User2ID} {
				busy, err := hasLiveSessionAt(ctx, tx, userID, current.ID, ext.Now)
				if err != nil {
					return err
				}
				if busy {
					return model.ErrDuplicate
				}
			}
		}

		session, err := scanSession(tx.QueryRow(ctx, `
UPDATE blind_sessions
SET status = 'extended',
	expires_at = $2,
	extended = TRUE,
	extended_by = $3,
	updated_at = NOW()
WHERE id = $1
	AND status = $4
	AND (user1_id = $3 OR user2_id = $3)
RETURNING `+sessionColumns, ext.SessionID, ext.ExpiresAt.UTC(), ext.RequesterID, string(ext.From)))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrConditionFailed
			}
			return fmt.Errorf("extend blind session: %w", err)
		}
		extended = session
		return nil
	})
	if err != nil {
		return model.BlindSession{}, err
	}
	return extended, nil
}

func (r *BlindSessionRepo) AppendMessage(ctx context.Context, msg model.BlindMessage) (model.BlindMessage, error) {
	if r.pool == nil {
		return model.BlindMessage{}, errors.New("postgres pool is nil")
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO blind_messages (id, session_id, sender_id, text, created_at)
SELECT $1, $2, $3, $4, $5
WHERE EXISTS (
	SELECT 1
	FROM blind_sessions
	WHERE id = $2
		AND status IN ('active', 'extended')
		AND expires_at >= $5
)
RETURNING seq
`, msg.ID, msg.SessionID, msg.SenderID, msg.Text, msg.CreatedAt.UTC()).Scan(&msg.Seq)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return model.BlindMessage{}, fmt.Errorf("append blind message: %w", err)
		}
		if _, err := r.GetSession(ctx, msg.SessionID); err != nil {
			return model.BlindMessage{}, err
		}
		return model.BlindMessage{}, model.ErrConditionFailed
	}
	return msg, nil
}

func (r *BlindSessionRepo) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]model.BlindMessage, error) {
	if r.pool == nil {
		return nil, errors.New("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, session_id, seq, sender_id, text, created_at
FROM blind_messages
WHERE session_id = $1
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list blind messages: %w", err)
	}
	defer rows.Close()

	items := make([]model.BlindMessage, 0)
	for rows.Next() {
		var msg model.BlindMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Seq, &msg.SenderID, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blind message: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blind messages: %w", err)
	}
	return items, nil
}

func (r *BlindSessionRepo) ExpireOverdue(ctx context.Context, now time.Time) (map[enums.SessionStatus]int64, error) {
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
WITH overdue AS (
	SELECT id, status
	FROM blind_sessions
	WHERE status IN ('active', 'extended')
		AND expires_at < $1
	FOR UPDATE
)
UPDATE blind_sessions s
SET status = 'ended', updated_at = NOW()
FROM overdue
WHERE s.id = overdue.id
RETURNING overdue.status
`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("expire overdue blind sessions: %w", err)
	}
	defer rows.Close()

	ended := make(map[enums.SessionStatus]int64)
	for rows.Next() {
		var from string
		if err := rows.Scan(&from); err != nil {
			return nil, fmt.Errorf("scan expired blind session: %w", err)
		}
		ended[enums.SessionStatus(from)]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired blind sessions: %w", err)
	}
	return ended, nil
}

func hasLiveSession(ctx context.Context, tx pgx.Tx, userID int64, except uuid.UUID) (bool, error) {
	return hasLiveSessionAt(ctx, tx, userID, except, time.Time{})
}

// hasLiveSessionAt ignores sessions whose deadline is before at. A zero at
// counts every session with a live status.
func hasLiveSessionAt(ctx context.Context, tx pgx.Tx, userID int64, except uuid.UUID, at time.Time) (bool, error) {
	var deadline *time.Time
	if !at.IsZero() {
		v := at.UTC()
		deadline = &v
	}

	var exists bool
	err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM blind_sessions
	WHERE (user1_id = $1 OR user2_id = $1)
		AND id <> $2
		AND status IN ('active', 'extended')
		AND ($3::TIMESTAMPTZ IS NULL OR expires_at >= $3)
)
`, userID, except, deadline).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check live session: %w", err)
	}
	return exists, nil
}

func scanSession(row pgx.Row) (model.BlindSession, error) {
	var (
		s      model.BlindSession
		status string
	)
	if err := row.Scan(&s.ID, &s.User1ID, &s.User2ID, &status, &s.StartTime, &s.ExpiresAt, &s.Extended, &s.ExtendedBy); err != nil {
		return model.BlindSession{}, err
	}
	s.Status = enums.SessionStatus(status)
	s.StartTime = s.StartTime.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return s, nil
}
