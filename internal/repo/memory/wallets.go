package memory

import (
	"context"
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/model"
)

func (s *Store) GetWallet(_ context.Context, userID int64) (model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[userID]
	if !ok {
		return model.Wallet{}, model.ErrRecordNotFound
	}
	return wallet, nil
}

func (s *Store) ApplyLikeRegen(_ context.Context, userID int64, expectedAnchor time.Time, add, maxLikes int, anchor time.Time) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if !w.LastLikeRegenAt.Equal(expectedAnchor) {
			return false
		}
		w.Likes = min(w.Likes+add, maxLikes)
		w.LastLikeRegenAt = anchor
		return true
	})
}

func (s *Store) DebitCoins(_ context.Context, userID, amount int64) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if w.Coins < amount {
			return false
		}
		w.Coins -= amount
		return true
	})
}

func (s *Store) CreditCoins(_ context.Context, userID, amount int64) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		w.Coins += amount
		return true
	})
}

func (s *Store) DebitLike(_ context.Context, userID int64) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if w.Likes < 1 {
			return false
		}
		w.Likes--
		return true
	})
}

func (s *Store) CreditLike(_ context.Context, userID int64, maxLikes int) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		w.Likes = min(w.Likes+1, maxLikes)
		return true
	})
}

func (s *Store) ReserveChatSlot(_ context.Context, userID int64) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if w.ActiveChatCount >= w.ChatSlots {
			return false
		}
		w.ActiveChatCount++
		return true
	})
}

func (s *Store) ReleaseChatSlot(_ context.Context, userID int64) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if w.ActiveChatCount <= 0 {
			return false
		}
		w.ActiveChatCount--
		return true
	})
}

func (s *Store) BuyLikes(_ context.Context, userID, cost int64, pack, maxLikes int) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if w.Coins < cost || w.Likes >= maxLikes {
			return false
		}
		w.Coins -= cost
		w.Likes = min(w.Likes+pack, maxLikes)
		return true
	})
}

func (s *Store) BuyChatSlot(_ context.Context, userID, cost int64) (model.Wallet, error) {
	return s.updateWallet(userID, func(w *model.Wallet) bool {
		if w.Coins < cost {
			return false
		}
		w.Coins -= cost
		w.ChatSlots++
		return true
	})
}

func (s *Store) updateWallet(userID int64, apply func(*model.Wallet) bool) (model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[userID]
	if !ok {
		return model.Wallet{}, model.ErrRecordNotFound
	}
	if !apply(&wallet) {
		return model.Wallet{}, model.ErrConditionFailed
	}
	s.wallets[userID] = wallet
	return wallet, nil
}
