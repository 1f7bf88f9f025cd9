package handlers

import (
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/services/blinddate"
	"github.com/ivankudzin/blinddate/internal/services/ledger"
	"github.com/ivankudzin/blinddate/internal/transport/http/dto"
)

func mapProfile(profile *model.PublicProfile) *dto.ProfileResponse {
	if profile == nil {
		return nil
	}
	return &dto.ProfileResponse{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		Age:         profile.Age,
		Gender:      string(profile.Gender),
		Faculty:     profile.Faculty,
		Bio:         profile.Bio,
		AvatarURL:   profile.AvatarURL,
	}
}

func mapSessionView(view blinddate.View) dto.BlindSessionResponse {
	return dto.BlindSessionResponse{
		ID:          view.Session.ID.String(),
		Status:      string(view.Session.Status),
		StartTime:   view.Session.StartTime,
		ExpiresAt:   view.Session.ExpiresAt,
		TimeLeftSec: int64(view.TimeLeft / time.Second),
		Extended:    view.Session.Extended,
		Partner:     mapProfile(view.Partner),
	}
}

func mapMessage(msg model.BlindMessage, viewerID int64) dto.BlindMessageResponse {
	return dto.BlindMessageResponse{
		ID:        msg.ID.String(),
		Seq:       msg.Seq,
		FromMe:    msg.SenderID == viewerID,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
}

func mapLike(like model.Like) dto.LikeResponse {
	return dto.LikeResponse{
		ID:            like.ID.String(),
		ReceiverID:    like.ReceiverID,
		Status:        string(like.Status),
		CreatedAt:     like.CreatedAt,
		RevealedAt:    like.RevealedAt,
		ChatStartedAt: like.ChatStartedAt,
	}
}

func mapSnapshot(snapshot ledger.Snapshot) dto.WalletResponse {
	resp := mapWallet(snapshot.Wallet, snapshot.MaxLikes)
	resp.NextLikeAt = snapshot.NextLikeAt
	return resp
}

func mapWallet(wallet model.Wallet, maxLikes int) dto.WalletResponse {
	return dto.WalletResponse{
		Coins:           wallet.Coins,
		Likes:           wallet.Likes,
		MaxLikes:        maxLikes,
		ChatSlots:       wallet.ChatSlots,
		ActiveChatCount: wallet.ActiveChatCount,
		FreeChatSlots:   wallet.FreeChatSlots(),
	}
}
