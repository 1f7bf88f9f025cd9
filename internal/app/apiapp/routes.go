package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/app/bootstrap"
	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/infra/metrics"
	"github.com/ivankudzin/blinddate/internal/infra/report"
	"github.com/ivankudzin/blinddate/internal/transport/http/handlers"
)

type Dependencies struct {
	Core     *bootstrap.Core
	Reporter *report.Reporter
	Logger   *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	core := deps.Core

	checks := make(map[string]handlers.Pinger)
	for name, check := range core.Checks() {
		checks[name] = check
	}

	healthHandler := handlers.NewHealthHandler(checks)
	authHandler := handlers.NewAuthHandler(core.Auth, deps.Reporter)
	blindHandler := handlers.NewBlindHandler(core.Queue, core.Sessions, deps.Reporter)
	likesHandler := handlers.NewLikesHandler(core.Likes, deps.Reporter)
	walletHandler := handlers.NewWalletHandler(core.Ledger, deps.Reporter)
	authMW := AuthMiddleware(core.Auth, deps.Logger)
	adminRoleMW := RequireRole(enums.RoleOwner, enums.RoleSupport)

	r.Get("/healthz", healthHandler.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Route("/blind", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/join", blindHandler.Join)
		r.Post("/leave", blindHandler.Leave)
		r.Get("/status", blindHandler.Status)
		r.Post("/session/{id}/message", blindHandler.SendMessage)
		r.Get("/session/{id}/messages", blindHandler.Messages)
		r.Post("/session/{id}/extend", blindHandler.Extend)
		r.Post("/session/{id}/end", blindHandler.End)
	})

	r.Route("/likes", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/my-status", walletHandler.MyStatus)
		r.Post("/like/{userId}", likesHandler.Like)
		r.Get("/likes", likesHandler.Incoming)
		r.Get("/sent", likesHandler.Outgoing)
		r.Post("/reveal/{likeId}", likesHandler.Reveal)
		r.Post("/start-chat/{likeId}", likesHandler.StartChat)
		r.Post("/direct-chat/{likeId}", likesHandler.DirectChat)
		r.Post("/decline/{likeId}", likesHandler.Decline)
		r.Post("/buy-likes", walletHandler.BuyLikes)
		r.Post("/buy-chat-slot", walletHandler.BuyChatSlot)
	})

	r.With(authMW).Post("/wallet/purchase-coins", walletHandler.PurchaseCoins)

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW, adminRoleMW)
		r.Post("/users/{id}/grant-coins", walletHandler.GrantCoins)
	})
}
