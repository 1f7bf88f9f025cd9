package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetUser(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	var (
		user model.User
		role string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, display_name, role, created_at
FROM users
WHERE id = $1
`, userID).Scan(&user.ID, &user.DisplayName, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrRecordNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	user.Role = enums.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
