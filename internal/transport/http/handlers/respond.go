package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/pkg/validate"
	authsvc "github.com/ivankudzin/blinddate/internal/services/auth"
	"github.com/ivankudzin/blinddate/internal/services/blinddate"
	"github.com/ivankudzin/blinddate/internal/services/ledger"
	likessvc "github.com/ivankudzin/blinddate/internal/services/likes"
	"github.com/ivankudzin/blinddate/internal/services/matchqueue"
	ratesvc "github.com/ivankudzin/blinddate/internal/services/rate"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

// ErrorReporter receives errors that end up as 500 responses.
type ErrorReporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}

type domainError struct {
	target  error
	status  int
	code    string
	message string
	typed   bool
}

// domainErrors is checked in order. Not found and validation come last so a
// more specific sentinel wins when an error matches several.
var domainErrors = []domainError{
	{target: ledger.ErrInsufficientFunds, status: http.StatusBadRequest, code: "INSUFFICIENT_FUNDS", message: "not enough coins", typed: true},
	{target: ledger.ErrNoLikes, status: http.StatusBadRequest, code: "NO_LIKES", message: "no likes left", typed: true},
	{target: ledger.ErrLikesFull, status: http.StatusBadRequest, code: "LIKES_FULL", message: "likes are already full", typed: true},
	{target: ledger.ErrUnknownPack, status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: "unknown coin pack"},
	{target: likessvc.ErrAlreadyLiked, status: http.StatusBadRequest, code: "ALREADY_LIKED", message: "user is already liked", typed: true},
	{target: matchqueue.ErrAlreadyInSession, status: http.StatusBadRequest, code: "ALREADY_IN_SESSION", message: "already in a blind date", typed: true},
	{target: blinddate.ErrAlreadyInSession, status: http.StatusBadRequest, code: "ALREADY_IN_SESSION", message: "a participant is already in another blind date", typed: true},
	{target: matchqueue.ErrProfileIncomplete, status: http.StatusBadRequest, code: "PROFILE_INCOMPLETE", message: "complete your dating profile first", typed: true},
	{target: blinddate.ErrSessionExpired, status: http.StatusBadRequest, code: "SESSION_EXPIRED", message: "session has expired", typed: true},
	{target: blinddate.ErrAlreadyExtended, status: http.StatusBadRequest, code: "INVALID_STATE", message: "session is already extended", typed: true},
	{target: blinddate.ErrStateChanged, status: http.StatusBadRequest, code: "INVALID_STATE", message: "session state changed, retry", typed: true},
	{target: likessvc.ErrInvalidTransition, status: http.StatusBadRequest, code: "INVALID_STATE", message: "like cannot make this transition", typed: true},
	{target: authsvc.ErrUnauthorized, status: http.StatusUnauthorized, code: "UNAUTHORIZED", message: "authentication failed"},
	{target: authsvc.ErrUnknownUser, status: http.StatusNotFound, code: "NOT_FOUND", message: "not found"},
	{target: blinddate.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "not found"},
	{target: likessvc.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "not found"},
	{target: matchqueue.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "not found"},
	{target: ledger.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "not found"},
	{target: blinddate.ErrValidation, status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: "invalid request"},
	{target: likessvc.ErrValidation, status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: "invalid request"},
	{target: matchqueue.ErrValidation, status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: "invalid request"},
	{target: ledger.ErrValidation, status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: "invalid request"},
	{target: authsvc.ErrInvalidInput, status: http.StatusBadRequest, code: "VALIDATION_ERROR", message: "invalid request"},
}

// writeServiceError maps a service error onto the failure envelope. Anything
// unrecognised is reported and answered as 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, reporter ErrorReporter, err error) {
	if tooFast, ok := ratesvc.IsTooFast(err); ok {
		httperrors.WriteRateLimited(w, tooFast.RetryAfter())
		return
	}
	if noSlots, ok := ledger.IsNoSlots(err); ok {
		code := "NO_SLOTS_SENDER"
		message := "the sender has no free chat slot"
		if noSlots.Party == ledger.PartyReceiver {
			code = "NO_SLOTS_RECEIVER"
			message = "you have no free chat slot"
		}
		httperrors.Write(w, http.StatusBadRequest, httperrors.Typed(code, message))
		return
	}

	for _, de := range domainErrors {
		if !errors.Is(err, de.target) {
			continue
		}
		payload := httperrors.New(de.code, de.message)
		if de.typed {
			payload = httperrors.Typed(de.code, de.message)
		}
		httperrors.Write(w, de.status, payload)
		return
	}

	if reporter != nil {
		reporter.Capture(r.Context(), err, map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeInternal(w, "INTERNAL_ERROR", "internal server error")
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeAndValidate reads the body into target and checks its validate tags.
// It writes the 400 itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || identity.UserID <= 0 {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid "+key)
		return uuid.Nil, false
	}
	return id, true
}

func int64Param(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, key)), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid "+key)
		return 0, false
	}
	return id, true
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.New(code, message))
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.New(code, message))
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.New(code, message))
}
