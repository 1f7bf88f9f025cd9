package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/config"
	ratesvc "github.com/ivankudzin/blinddate/internal/services/rate"
)

func TestNewWithMemoryDriver(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cfg := config.Default()
	cfg.Storage.Driver = config.StorageDriverMemory
	cfg.Redis.Addr = mr.Addr()

	core, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer func() { _ = core.Close() }()

	if core.Memory == nil || core.Postgres != nil {
		t.Fatalf("memory driver must not open postgres")
	}
	if core.Limiter == nil {
		t.Fatalf("limiter must be attached when redis is reachable")
	}
	checks := core.Checks()
	if _, ok := checks["postgres"]; ok {
		t.Fatalf("unexpected postgres check for memory driver")
	}
	if err := checks["redis"](context.Background()); err != nil {
		t.Fatalf("redis check: %v", err)
	}
}

func TestNewWithoutRedisDisablesLimits(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Storage.Driver = config.StorageDriverMemory
	cfg.Redis.Addr = addr

	core, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer func() { _ = core.Close() }()

	if core.Limiter != nil {
		t.Fatalf("limiter must stay off without redis")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"

	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestRateRules(t *testing.T) {
	rules := RateRules(config.RateConfig{LikesPerMinute: 3, MessagesPer10Sec: 4, JoinsPerMinute: 5})

	tests := []struct {
		action ratesvc.Action
		window time.Duration
		max    int
	}{
		{action: ratesvc.ActionLike, window: time.Minute, max: 3},
		{action: ratesvc.ActionMessage, window: 10 * time.Second, max: 4},
		{action: ratesvc.ActionJoin, window: time.Minute, max: 5},
	}
	for _, tt := range tests {
		got := rules[tt.action]
		if len(got) != 1 || got[0].Window != tt.window || got[0].Max != tt.max {
			t.Fatalf("unexpected rules for %s: %+v", tt.action, got)
		}
	}
}
