package apiapp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/infra/metrics"
	authsvc "github.com/ivankudzin/blinddate/internal/services/auth"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger, requestTimeout time.Duration) {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(requestLogger(log))
}

func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.New("AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable"))
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.New("UNAUTHORIZED", "missing bearer token"))
				return
			}

			claims, err := authService.ValidateAccessToken(r.Context(), accessToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware validation failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.New("UNAUTHORIZED", "invalid access token"))
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through when the identity holds one of roles.
// Role names compare case-insensitively.
func RequireRole(roles ...enums.Role) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToUpper(string(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok || identity.UserID <= 0 {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.New("UNAUTHORIZED", "authentication required"))
				return
			}
			if _, ok := allowed[strings.ToUpper(string(identity.Role))]; !ok {
				httperrors.Write(w, http.StatusForbidden, httperrors.New("FORBIDDEN", "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			duration := time.Since(start)
			metrics.ObserveHTTPRequest(route, r.Method, status, duration)

			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("route", route),
					zap.Int("status", status),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.Duration("duration", duration),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
