package handlers

import (
	"context"
	"net/http"

	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/services/blinddate"
	"github.com/ivankudzin/blinddate/internal/services/matchqueue"
	"github.com/ivankudzin/blinddate/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

type BlindHandler struct {
	queue    *matchqueue.Service
	sessions *blinddate.Service
	reporter ErrorReporter
}

func NewBlindHandler(queue *matchqueue.Service, sessions *blinddate.Service, reporter ErrorReporter) *BlindHandler {
	return &BlindHandler{queue: queue, sessions: sessions, reporter: reporter}
}

func (h *BlindHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.queue == nil || h.sessions == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	result, err := h.queue.Join(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	resp := dto.BlindJoinResponse{Success: true, Status: string(result.Status)}
	if result.Session != nil {
		session, err := h.describe(r.Context(), *result.Session, identity.UserID)
		if err != nil {
			writeServiceError(w, r, h.reporter, err)
			return
		}
		resp.Session = &session
	}
	if !result.JoinedAt.IsZero() {
		joinedAt, expiresAt := result.JoinedAt, result.ExpiresAt
		resp.JoinedAt = &joinedAt
		resp.QueueExpiresAt = &expiresAt
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *BlindHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.queue == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	if err := h.queue.Leave(r.Context(), identity.UserID); err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{Success: true})
}

func (h *BlindHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.queue == nil || h.sessions == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	result, err := h.queue.Status(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	resp := dto.BlindStatusResponse{
		Success:        true,
		State:          string(result.State),
		JoinedAt:       result.JoinedAt,
		QueueExpiresAt: result.ExpiresAt,
	}
	if result.Session != nil {
		session, err := h.describe(r.Context(), *result.Session, identity.UserID)
		if err != nil {
			writeServiceError(w, r, h.reporter, err)
			return
		}
		resp.Session = &session
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *BlindHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if h.sessions == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	var req dto.BlindMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.sessions.SendMessage(r.Context(), sessionID, identity.UserID, req.Text)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BlindSendMessageResponse{
		Success: true,
		Message: mapMessage(msg, identity.UserID),
	})
}

func (h *BlindHandler) Messages(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if h.sessions == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	view, messages, err := h.sessions.Messages(r.Context(), sessionID, identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	items := make([]dto.BlindMessageResponse, 0, len(messages))
	for _, msg := range messages {
		items = append(items, mapMessage(msg, identity.UserID))
	}

	httperrors.Write(w, http.StatusOK, dto.BlindMessagesResponse{
		Success:  true,
		Session:  mapSessionView(view),
		Messages: items,
	})
}

func (h *BlindHandler) Extend(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if h.sessions == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	result, err := h.sessions.Extend(r.Context(), sessionID, identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BlindExtendResponse{
		Success:   true,
		Session:   mapSessionView(result.View),
		CoinsLeft: result.CoinsLeft,
	})
}

func (h *BlindHandler) End(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if h.sessions == nil {
		writeInternal(w, "BLIND_SERVICE_UNAVAILABLE", "blind date service is unavailable")
		return
	}

	session, err := h.sessions.End(r.Context(), sessionID, identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	view, err := h.describe(r.Context(), session, identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.BlindEndResponse{Success: true, Session: view})
}

func (h *BlindHandler) describe(ctx context.Context, session model.BlindSession, userID int64) (dto.BlindSessionResponse, error) {
	view, err := h.sessions.Describe(ctx, session, userID)
	if err != nil {
		return dto.BlindSessionResponse{}, err
	}
	return mapSessionView(view), nil
}
