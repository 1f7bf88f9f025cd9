package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/blinddate/internal/domain/model"
)

const walletColumns = `user_id, coins, likes, last_like_regen_at, chat_slots, active_chat_count`

type WalletRepo struct {
	pool     *pgxpool.Pool
	defaults model.WalletDefaults
}

func NewWalletRepo(pool *pgxpool.Pool, defaults model.WalletDefaults) *WalletRepo {
	return &WalletRepo{pool: pool, defaults: defaults}
}

func (r *WalletRepo) GetWallet(ctx context.Context, userID int64) (model.Wallet, error) {
	if r.pool == nil {
		return model.Wallet{}, errors.New("postgres pool is nil")
	}
	if err := r.ensure(ctx, userID); err != nil {
		return model.Wallet{}, err
	}

	wallet, err := scanWallet(r.pool.QueryRow(ctx, `
SELECT `+walletColumns+`
FROM wallets
WHERE user_id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Wallet{}, model.ErrRecordNotFound
		}
		return model.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

func (r *WalletRepo) ApplyLikeRegen(ctx context.Context, userID int64, expectedAnchor time.Time, add, maxLikes int, anchor time.Time) (model.Wallet, error) {
	return r.conditional(ctx, "apply like regen", userID, `
UPDATE wallets
SET likes = LEAST(likes + $2, $3),
	last_like_regen_at = $4,
	updated_at = NOW()
WHERE user_id = $1
	AND last_like_regen_at = $5
RETURNING `+walletColumns, userID, add, maxLikes, anchor.UTC(), expectedAnchor.UTC())
}

func (r *WalletRepo) DebitCoins(ctx context.Context, userID, amount int64) (model.Wallet, error) {
	return r.conditional(ctx, "debit coins", userID, `
UPDATE wallets
SET coins = coins - $2,
	updated_at = NOW()
WHERE user_id = $1
	AND coins >= $2
RETURNING `+walletColumns, userID, amount)
}

func (r *WalletRepo) CreditCoins(ctx context.Context, userID, amount int64) (model.Wallet, error) {
	return r.conditional(ctx, "credit coins", userID, `
UPDATE wallets
SET coins = coins + $2,
	updated_at = NOW()
WHERE user_id = $1
RETURNING `+walletColumns, userID, amount)
}

func (r *WalletRepo) DebitLike(ctx context.Context, userID int64) (model.Wallet, error) {
	return r.conditional(ctx, "debit like", userID, `
UPDATE wallets
SET likes = likes - 1,
	updated_at = NOW()
WHERE user_id = $1
	AND likes >= 1
RETURNING `+walletColumns, userID)
}

func (r *WalletRepo) CreditLike(ctx context.Context, userID int64, maxLikes int) (model.Wallet, error) {
	return r.conditional(ctx, "credit like", userID, `
UPDATE wallets
SET likes = LEAST(likes + 1, $2),
	updated_at = NOW()
WHERE user_id = $1
RETURNING `+walletColumns, userID, maxLikes)
}

func (r *WalletRepo) ReserveChatSlot(ctx context.Context, userID int64) (model.Wallet, error) {
	return r.conditional(ctx, "reserve chat slot", userID, `
UPDATE wallets
SET active_chat_count = active_chat_count + 1,
	updated_at = NOW()
WHERE user_id = $1
	AND active_chat_count < chat_slots
RETURNING `+walletColumns, userID)
}

func (r *WalletRepo) ReleaseChatSlot(ctx context.Context, userID int64) (model.Wallet, error) {
	return r.conditional(ctx, "release chat slot", userID, `
UPDATE wallets
SET active_chat_count = active_chat_count - 1,
	updated_at = NOW()
WHERE user_id = $1
	AND active_chat_count > 0
RETURNING `+walletColumns, userID)
}

func (r *WalletRepo) BuyLikes(ctx context.Context, userID, cost int64, pack, maxLikes int) (model.Wallet, error) {
	return r.conditional(ctx, "buy likes", userID, `
UPDATE wallets
SET coins = coins - $2,
	likes = LEAST(likes + $3, $4),
	updated_at = NOW()
WHERE user_id = $1
	AND coins >= $2
	AND likes < $4
RETURNING `+walletColumns, userID, cost, pack, maxLikes)
}

func (r *WalletRepo) BuyChatSlot(ctx context.Context, userID, cost int64) (model.Wallet, error) {
	return r.conditional(ctx, "buy chat slot", userID, `
UPDATE wallets
SET coins = coins - $2,
	chat_slots = chat_slots + 1,
	updated_at = NOW()
WHERE user_id = $1
	AND coins >= $2
RETURNING `+walletColumns, userID, cost)
}

// conditional runs a guarded UPDATE ... RETURNING and tells a missing wallet
// apart from a guard that did not hold.
func (r *WalletRepo) conditional(ctx context.Context, op string, userID int64, sql string, args ...any) (model.Wallet, error) {
	if r.pool == nil {
		return model.Wallet{}, errors.New("postgres pool is nil")
	}
	if err := r.ensure(ctx, userID); err != nil {
		return model.Wallet{}, err
	}

	wallet, err := scanWallet(r.pool.QueryRow(ctx, sql, args...))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Wallet{}, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return model.Wallet{}, fmt.Errorf("%s: check wallet: %w", op, err)
	}
	if !exists {
		return model.Wallet{}, model.ErrRecordNotFound
	}
	return model.Wallet{}, model.ErrConditionFailed
}

// ensure creates the wallet with configured defaults for a known user.
func (r *WalletRepo) ensure(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, `
INSERT INTO wallets (user_id, coins, likes, last_like_regen_at, chat_slots)
SELECT id, $2, $3, NOW(), $4
FROM users
WHERE id = $1
ON CONFLICT (user_id) DO NOTHING
`, userID, r.defaults.Coins, r.defaults.Likes, r.defaults.ChatSlots); err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func scanWallet(row pgx.Row) (model.Wallet, error) {
	var w model.Wallet
	if err := row.Scan(&w.UserID, &w.Coins, &w.Likes, &w.LastLikeRegenAt, &w.ChatSlots, &w.ActiveChatCount); err != nil {
		return model.Wallet{}, err
	}
	w.LastLikeRegenAt = w.LastLikeRegenAt.UTC()
	return w, nil
}
