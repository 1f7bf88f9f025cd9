package handlers

import (
	"net/http"
	"time"

	authsvc "github.com/ivankudzin/blinddate/internal/services/auth"
	"github.com/ivankudzin/blinddate/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

type AuthHandler struct {
	service  *authsvc.Service
	reporter ErrorReporter
}

func NewAuthHandler(service *authsvc.Service, reporter ErrorReporter) *AuthHandler {
	return &AuthHandler{service: service, reporter: reporter}
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AuthTokensResponse{
		Success:      true,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresInSec: int64(res.ExpiresIn(time.Now()).Seconds()),
		Me: dto.AuthMeResponse{
			ID:   res.Me.ID,
			Role: string(res.Me.Role),
		},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{Success: true})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	if err := h.service.LogoutAll(r.Context(), identity.UserID); err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{Success: true})
}
