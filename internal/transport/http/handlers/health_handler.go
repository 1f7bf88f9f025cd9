package handlers

import (
	"context"
	"net/http"

	"github.com/ivankudzin/blinddate/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := dto.HealthResponse{Success: true, Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, ping := range h.checks {
		if err := ping(r.Context()); err != nil {
			resp.Checks[name] = "down"
			resp.Success = false
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}

	httperrors.Write(w, status, resp)
}
