package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

type QueueRepo struct {
	pool *pgxpool.Pool
}

func NewQueueRepo(pool *pgxpool.Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

func (r *QueueRepo) GetEntry(ctx context.Context, userID int64) (model.QueueEntry, error) {
	if r.pool == nil {
		return model.QueueEntry{}, errors.New("postgres pool is nil")
	}

	entry, err := scanQueueEntry(r.pool.QueryRow(ctx, `
SELECT user_id, gender, looking_for, joined_at
FROM blind_queue
WHERE user_id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.QueueEntry{}, model.ErrRecordNotFound
		}
		return model.QueueEntry{}, fmt.Errorf("get queue entry: %w", err)
	}
	return entry, nil
}

func (r *QueueRepo) ListCandidates(ctx context.Context, filter model.QueueFilter) ([]model.QueueEntry, error) {
	if r.pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	var gender *string
	if filter.Gender != nil {
		v := string(*filter.Gender)
		gender = &v
	}
	var acceptedBy []string
	if filter.AcceptedBy != nil {
		acceptedBy = make([]string, 0, len(filter.AcceptedBy))
		for _, v := range filter.AcceptedBy {
			acceptedBy = append(acceptedBy, string(v))
		}
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, gender, looking_for, joined_at
FROM blind_queue
WHERE user_id <> $1
	AND ($2::TEXT IS NULL OR gender = $2)
	AND ($5::TEXT[] IS NULL OR looking_for = ANY($5::TEXT[]))
	AND joined_at >= $3
ORDER BY joined_at ASC, user_id ASC
LIMIT $4
`, filter.ExcludeUserID, gender, filter.JoinedAfter.UTC(), filter.Limit, acceptedBy)
	if err != nil {
		return nil, fmt.Errorf("list queue candidates: %w", err)
	}
	defer rows.Close()

	items := make([]model.QueueEntry, 0, filter.Limit)
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue candidate: %w", err)
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue candidates: %w", err)
	}
	return items, nil
}

func (r *QueueRepo) Enqueue(ctx context.Context, entry model.QueueEntry) (bool, error) {
	if r.pool == nil {
		return false, errors.New("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO blind_queue (user_id, gender, looking_for, joined_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO NOTHING
`, entry.UserID, string(entry.Gender), string(entry.LookingFor), entry.JoinedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("enqueue: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *QueueRepo) Remove(ctx context.Context, userID int64) (bool, error) {
	if r.pool == nil {
		return false, errors.New("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM blind_queue WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("remove queue entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *QueueRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM blind_queue WHERE joined_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired queue entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *QueueRepo) ClaimAndStart(ctx context.Context, session model.BlindSession, now time.Time) error {
	candidateID, requesterID := session.User1ID, session.User2ID

	return WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUsers(ctx, tx, candidateID, requesterID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
UPDATE blind_sessions
SET status = 'ended', updated_at = NOW()
WHERE status IN ('active', 'extended')
	AND expires_at < $1
	AND (user1_id = ANY($2) OR user2_id = ANY($2))
`, now.UTC(), []int64{candidateID, requesterID}); err != nil {
			return fmt.Errorf("end overdue sessions: %w", err)
		}

		busy, err := hasLiveSession(ctx, tx, requesterID, session.ID)
		if err != nil {
			return err
		}
		if busy {
			return model.ErrDuplicate
		}

		busy, err = hasLiveSession(ctx, tx, candidateID, session.ID)
		if err != nil {
			return err
		}
		if busy {
			return model.ErrConditionFailed
		}

		var claimed int64
		err = tx.QueryRow(ctx, `DELETE FROM blind_queue WHERE user_id = $1 RETURNING user_id`, candidateID).Scan(&claimed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrConditionFailed
			}
			return fmt.Errorf("claim queue entry: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM blind_queue WHERE user_id = $1`, requesterID); err != nil {
			return fmt.Errorf("remove requester queue entry: %w", err)
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO blind_sessions (id, user1_id, user2_id, status, start_time, expires_at, extended)
VALUES ($1, $2, $3, $4, $5, $6, FALSE)
`, session.ID, candidateID, requesterID, string(enums.SessionStatusActive), session.StartTime.UTC(), session.ExpiresAt.UTC()); err != nil {
			return fmt.Errorf("insert blind session: %w", err)
		}
		return nil
	})
}

func scanQueueEntry(row pgx.Row) (model.QueueEntry, error) {
	var (
		entry      model.QueueEntry
		gender     string
		lookingFor string
	)
	if err := row.Scan(&entry.UserID, &gender, &lookingFor, &entry.JoinedAt); err != nil {
		return model.QueueEntry{}, err
	}
	entry.Gender = enums.Gender(gender)
	entry.LookingFor = enums.LookingFor(lookingFor)
	entry.JoinedAt = entry.JoinedAt.UTC()
	return entry, nil
}
