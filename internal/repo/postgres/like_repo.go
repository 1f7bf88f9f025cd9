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

const likeColumns = `l.id, l.sender_id, l.receiver_id, l.status, l.created_at, l.revealed_at, l.chat_started_at`

type LikeRepo struct {
	pool *pgxpool.Pool
}

func NewLikeRepo(pool *pgxpool.Pool) *LikeRepo {
	return &LikeRepo{pool: pool}
}

func (r *LikeRepo) Create(ctx context.Context, like model.Like) error {
	if r.pool == nil {
		return errors.New("postgres pool is nil")
	}
	if like.SenderID <= 0 || like.ReceiverID <= 0 {
		return fmt.Errorf("invalid like payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO likes (id, sender_id, receiver_id, status, created_at)
VALUES ($1, $2, $3, $4, $5)
`, like.ID, like.SenderID, like.ReceiverID, string(like.Status), like.CreatedAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicate
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

func (r *LikeRepo) Exists(ctx context.Context, senderID, receiverID int64) (bool, error) {
	if r.pool == nil {
		return false, errors.New("postgres pool is nil")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM likes
	WHERE sender_id = $1 AND receiver_id = $2
)
`, senderID, receiverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup like: %w", err)
	}
	return exists, nil
}

func (r *LikeRepo) GetLike(ctx context.Context, id uuid.UUID) (model.Like, error) {
	if r.pool == nil {
		return model.Like{}, errors.New("postgres pool is nil")
	}

	like, err := scanLike(r.pool.QueryRow(ctx, `
SELECT `+likeColumns+`
FROM likes l
WHERE l.id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Like{}, model.ErrRecordNotFound
		}
		return model.Like{}, fmt.Errorf("get like: %w", err)
	}
	return like, nil
}

func (r *LikeRepo) Transition(ctx context.Context, id uuid.UUID, from, to enums.LikeStatus, at time.Time) (model.Like, error) {
	if r.pool == nil {
		return model.Like{}, errors.New("postgres pool is nil")
	}

	stampReveal := to == enums.LikeStatusRevealed || to == enums.LikeStatusChatting
	stampChat := to == enums.LikeStatusChatting

	like, err := scanLike(r.pool.QueryRow(ctx, `
UPDATE likes l
SET status = $3,
	revealed_at = CASE WHEN $5 THEN COALESCE(l.revealed_at, $4) ELSE l.revealed_at END,
	chat_started_at = CASE WHEN $6 THEN COALESCE(l.chat_started_at, $4) ELSE l.chat_started_at END
WHERE l.id = $1
	AND l.status = $2
RETURNING `+likeColumns, id, string(from), string(to), at.UTC(), stampReveal, stampChat))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return model.Like{}, fmt.Errorf("transition like: %w", err)
		}
		if _, err := r.GetLike(ctx, id); err != nil {
			return model.Like{}, err
		}
		return model.Like{}, model.ErrConditionFailed
	}
	return like, nil
}

func (r *LikeRepo) ListIncoming(ctx context.Context, receiverID int64, limit int) ([]model.IncomingLike, error) {
	if r.pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	`+likeColumns+`,
	u.display_name,
	COALESCE(DATE_PART('year', AGE(NOW(), u.birthdate))::INT, 0),
	COALESCE(u.dating_gender, ''),
	u.faculty,
	u.bio,
	u.avatar_url
FROM likes l
JOIN users u ON u.id = l.sender_id
WHERE l.receiver_id = $1
ORDER BY l.created_at DESC
LIMIT $2
`, receiverID, limit)
	if err != nil {
		return nil, fmt.Errorf("list incoming likes: %w", err)
	}
	defer rows.Close()

	items := make([]model.IncomingLike, 0, limit)
	for rows.Next() {
		var (
			item   model.IncomingLike
			status string
			gender string
		)
		if err := rows.Scan(
			&item.Like.ID,
			&item.Like.SenderID,
			&item.Like.ReceiverID,
			&status,
			&item.Like.CreatedAt,
			&item.Like.RevealedAt,
			&item.Like.ChatStartedAt,
			&item.Sender.DisplayName,
			&item.Sender.Age,
			&gender,
			&item.Sender.Faculty,
			&item.Sender.Bio,
			&item.Sender.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scan incoming like: %w", err)
		}
		item.Like.Status = enums.LikeStatus(status)
		item.Sender.UserID = item.Like.SenderID
		item.Sender.Gender = enums.Gender(gender)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incoming likes: %w", err)
	}
	return items, nil
}

func (r *LikeRepo) ListOutgoing(ctx context.Context, senderID int64, limit int) ([]model.Like, error) {
	if r.pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+likeColumns+`
FROM likes l
WHERE l.sender_id = $1
ORDER BY l.created_at DESC
LIMIT $2
`, senderID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outgoing likes: %w", err)
	}
	defer rows.Close()

	items := make([]model.Like, 0, limit)
	for rows.Next() {
		like, err := scanLike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outgoing like: %w", err)
		}
		items = append(items, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outgoing likes: %w", err)
	}
	return items, nil
}

func scanLike(row pgx.Row) (model.Like, error) {
	var (
		like   model.Like
		status string
	)
	if err := row.Scan(&like.ID, &like.SenderID, &like.ReceiverID, &status, &like.CreatedAt, &like.RevealedAt, &like.ChatStartedAt); err != nil {
		return model.Like{}, err
	}
	like.Status = enums.LikeStatus(status)
	like.CreatedAt = like.CreatedAt.UTC()
	return like, nil
}
