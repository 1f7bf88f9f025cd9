package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// APIError is the failure envelope. ErrorType is set when the caller has to
// branch on the failure, for example to tell which party lacked chat slots.
type APIError struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type,omitempty"`
}

type RateLimitError struct {
	Success       bool   `json:"success"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func New(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

func Typed(code, message string) APIError {
	return APIError{Code: code, Message: message, ErrorType: code}
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteRateLimited(w http.ResponseWriter, retryAfterSec int64) {
	if retryAfterSec <= 0 {
		retryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))
	Write(w, http.StatusTooManyRequests, RateLimitError{
		Code:          "TOO_FAST",
		Message:       "too many requests, slow down",
		RetryAfterSec: retryAfterSec,
	})
}
