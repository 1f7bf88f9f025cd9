package model

import "time"

type Wallet struct {
	UserID          int64     `json:"user_id"`
	Coins           int64     `json:"coins"`
	Likes           int       `json:"likes"`
	LastLikeRegenAt time.Time `json:"last_like_regen_at"`
	ChatSlots       int       `json:"chat_slots"`
	ActiveChatCount int       `json:"active_chat_count"`
}

func (w Wallet) FreeChatSlots() int {
	free := w.ChatSlots - w.ActiveChatCount
	if free < 0 {
		return 0
	}
	return free
}

// WalletDefaults is the balance a wallet starts with on first use.
type WalletDefaults struct {
	Coins     int64
	Likes     int
	ChatSlots int
}
