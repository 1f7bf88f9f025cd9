package dto

import "time"

type WalletResponse struct {
	Coins           int64      `json:"coins"`
	Likes           int        `json:"likes"`
	MaxLikes        int        `json:"max_likes"`
	NextLikeAt      *time.Time `json:"next_like_at,omitempty"`
	ChatSlots       int        `json:"chat_slots"`
	ActiveChatCount int        `json:"active_chat_count"`
	FreeChatSlots   int        `json:"free_chat_slots"`
}

type WalletStatusResponse struct {
	Success bool           `json:"success"`
	Wallet  WalletResponse `json:"wallet"`
}

type PurchaseCoinsRequest struct {
	Pack string `json:"pack" validate:"required"`
}

type PurchaseCoinsResponse struct {
	Success  bool           `json:"success"`
	Credited int64          `json:"credited"`
	Wallet   WalletResponse `json:"wallet"`
}

type GrantCoinsRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type GrantCoinsResponse struct {
	Success bool           `json:"success"`
	UserID  int64          `json:"user_id"`
	Wallet  WalletResponse `json:"wallet"`
}
