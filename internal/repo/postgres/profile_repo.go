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

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) GetDatingProfile(ctx context.Context, userID int64) (model.DatingProfile, error) {
	if r.pool == nil {
		return model.DatingProfile{}, errors.New("postgres pool is nil")
	}

	var (
		profile    model.DatingProfile
		gender     *string
		lookingFor *string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, dating_gender, dating_looking_for, dating_profile_complete
FROM users
WHERE id = $1
`, userID).Scan(&profile.UserID, &gender, &lookingFor, &profile.Complete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DatingProfile{}, model.ErrRecordNotFound
		}
		return model.DatingProfile{}, fmt.Errorf("get dating profile: %w", err)
	}

	if gender != nil {
		profile.Gender = enums.Gender(*gender)
	}
	if lookingFor != nil {
		profile.LookingFor = enums.LookingFor(*lookingFor)
	}
	return profile, nil
}

func (r *ProfileRepo) GetPublicProfile(ctx context.Context, userID int64) (model.PublicProfile, error) {
	if r.pool == nil {
		return model.PublicProfile{}, errors.New("postgres pool is nil")
	}

	var (
		profile model.PublicProfile
		gender  *string
	)
	err := r.pool.QueryRow(ctx, `
SELECT
	id,
	display_name,
	COALESCE(DATE_PART('year', AGE(NOW(), birthdate))::INT, 0),
	dating_gender,
	faculty,
	bio,
	avatar_url
FROM users
WHERE id = $1
`, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Age,
		&gender,
		&profile.Faculty,
		&profile.Bio,
		&profile.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PublicProfile{}, model.ErrRecordNotFound
		}
		return model.PublicProfile{}, fmt.Errorf("get public profile: %w", err)
	}

	if gender != nil {
		profile.Gender = enums.Gender(*gender)
	}
	return profile, nil
}
