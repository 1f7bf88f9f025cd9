package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/app/bootstrap"
	"github.com/ivankudzin/blinddate/internal/config"
	"github.com/ivankudzin/blinddate/internal/infra/report"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	core       *bootstrap.Core
	reporter   *report.Reporter
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	core, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("bootstrap core: %w", err)
	}

	reporter, err := report.New(report.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Env,
		SampleRate:  cfg.Sentry.SampleRate,
	}, log.Named("report"))
	if err != nil {
		_ = core.Close()
		return nil, err
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.RequestTimeout)

	RegisterRoutes(r, Dependencies{
		Core:     core,
		Reporter: reporter,
		Logger:   log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		core:       core,
		reporter:   reporter,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	a.reporter.Flush(2 * time.Second)
	if err := a.core.Close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Core exposes the wired services, mainly for seeding in tests.
func (a *App) Core() *bootstrap.Core {
	return a.core
}
