package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	likessvc "github.com/ivankudzin/blinddate/internal/services/likes"
	"github.com/ivankudzin/blinddate/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

type LikesHandler struct {
	service  *likessvc.Service
	reporter ErrorReporter
}

func NewLikesHandler(service *likessvc.Service, reporter ErrorReporter) *LikesHandler {
	return &LikesHandler{service: service, reporter: reporter}
}

func (h *LikesHandler) Like(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	receiverID, ok := int64Param(w, r, "userId")
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	result, err := h.service.SendLike(r.Context(), identity.UserID, receiverID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendLikeResponse{
		Success:   true,
		Like:      mapLike(result.Like),
		LikesLeft: result.LikesLeft,
	})
}

func (h *LikesHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	items, err := h.service.Incoming(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	likes := make([]dto.IncomingLikeResponse, 0, len(items))
	for _, item := range items {
		likes = append(likes, dto.IncomingLikeResponse{
			ID:        item.Like.ID.String(),
			Status:    string(item.Like.Status),
			CreatedAt: item.Like.CreatedAt,
			Blurred:   item.Blurred,
			Sender:    mapProfile(item.Sender),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.IncomingLikesResponse{
		Success:    true,
		TotalCount: len(likes),
		Likes:      likes,
	})
}

func (h *LikesHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	items, err := h.service.Outgoing(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	likes := make([]dto.LikeResponse, 0, len(items))
	for _, item := range items {
		likes = append(likes, mapLike(item))
	}

	httperrors.Write(w, http.StatusOK, dto.OutgoingLikesResponse{
		Success:    true,
		TotalCount: len(likes),
		Likes:      likes,
	})
}

func (h *LikesHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reveal)
}

func (h *LikesHandler) StartChat(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.StartChat)
}

func (h *LikesHandler) DirectChat(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DirectChat)
}

func (h *LikesHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, receiverID int64, likeID uuid.UUID) (likessvc.TransitionResult, error) {
		like, err := h.service.Decline(ctx, receiverID, likeID)
		return likessvc.TransitionResult{Like: like}, err
	})
}

type likeTransition func(ctx context.Context, receiverID int64, likeID uuid.UUID) (likessvc.TransitionResult, error)

func (h *LikesHandler) transition(w http.ResponseWriter, r *http.Request, fn likeTransition) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	likeID, ok := uuidParam(w, r, "likeId")
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	result, err := fn(r.Context(), identity.UserID, likeID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	resp := dto.LikeTransitionResponse{
		Success: true,
		Like:    mapLike(result.Like),
		Sender:  mapProfile(result.Sender),
	}
	if result.Sender != nil {
		coins := result.CoinsLeft
		resp.CoinsLeft = &coins
	}
	httperrors.Write(w, http.StatusOK, resp)
}
