// Command api serves the blind-date, likes and wallet HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/app/apiapp"
	"github.com/ivankudzin/blinddate/internal/config"
	"github.com/ivankudzin/blinddate/internal/infra/logger"
)

func main() {
	defaultPath := os.Getenv("APP_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	cfgPath := flag.String("config", defaultPath, "path to config file")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown budget")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := apiapp.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("create api app", zap.Error(err))
	}

	log.Info("api starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown api app", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api server failed", zap.Error(err))
		}
	}
}
