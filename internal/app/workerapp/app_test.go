package workerapp

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ivankudzin/blinddate/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := config.Default()
	cfg.Storage.Driver = config.StorageDriverMemory
	cfg.Redis.Addr = mr.Addr()
	return cfg
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.CleanupSchedule = "every now and then"

	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected schedule parse error")
	}
}

func TestWrapReportsFailedJob(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app, err := New(context.Background(), testConfig(t), zap.New(core))
	if err != nil {
		t.Fatalf("create worker app: %v", err)
	}

	app.wrap("broken", jobFunc(func(context.Context) error {
		return errors.New("boom")
	}))()

	entries := logs.FilterMessage("unexpected error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one reported error, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["job"]; got != "broken" {
		t.Fatalf("unexpected job tag: %v", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("create worker app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("run worker: %v", err)
	}
}

type jobFunc func(ctx context.Context) error

func (f jobFunc) Run(ctx context.Context) error {
	return f(ctx)
}
