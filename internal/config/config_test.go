package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
storage:
  driver: memory
economy:
  reveal_cost: 80
  session_duration: 7m
  coin_packs:
    tiny: 10
rate:
  joins_per_minute: 3
worker:
  cleanup_schedule: "@every 30s"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Storage.Driver != StorageDriverMemory {
		t.Fatalf("unexpected storage driver: %s", cfg.Storage.Driver)
	}
	if cfg.Economy.RevealCost != 80 {
		t.Fatalf("unexpected reveal cost: %d", cfg.Economy.RevealCost)
	}
	if cfg.Economy.SessionDuration != 7*time.Minute {
		t.Fatalf("unexpected session duration: %s", cfg.Economy.SessionDuration)
	}
	if cfg.Economy.CoinPacks["tiny"] != 10 {
		t.Fatalf("unexpected coin packs: %v", cfg.Economy.CoinPacks)
	}
	if cfg.Rate.JoinsPerMinute != 3 {
		t.Fatalf("unexpected joins/min: %d", cfg.Rate.JoinsPerMinute)
	}
	if cfg.Worker.CleanupSchedule != "@every 30s" {
		t.Fatalf("unexpected cleanup schedule: %s", cfg.Worker.CleanupSchedule)
	}

	if cfg.Economy.DirectChatCost != 150 {
		t.Fatalf("direct chat cost default should stay 150")
	}
	if cfg.Economy.ExtensionDuration != 10*time.Minute {
		t.Fatalf("extension duration default should stay 10m")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Economy.MaxFreeLikes != 5 || cfg.Economy.LikeRegenInterval != time.Hour {
		t.Fatalf("unexpected like defaults: %d per %s", cfg.Economy.MaxFreeLikes, cfg.Economy.LikeRegenInterval)
	}
	if cfg.Economy.ExtensionCost != 100 || cfg.Economy.RevealCost != 70 || cfg.Economy.StartChatCost != 100 {
		t.Fatalf("unexpected cost defaults: %+v", cfg.Economy)
	}
	if cfg.Economy.QueueTTL != 10*time.Minute || cfg.Economy.SessionDuration != 5*time.Minute {
		t.Fatalf("unexpected queue/session defaults: %s %s", cfg.Economy.QueueTTL, cfg.Economy.SessionDuration)
	}
	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Fatalf("unexpected default storage driver: %s", cfg.Storage.Driver)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("RATE_LIKES_PER_MINUTE", "7")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")
	t.Setenv("POSTGRES_MAX_CONNS", "25")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Storage.Driver != StorageDriverMemory {
		t.Fatalf("expected lowercased memory driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Rate.LikesPerMinute != 7 {
		t.Fatalf("unexpected likes/min: %d", cfg.Rate.LikesPerMinute)
	}
	if cfg.Auth.JWTAccessTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl: %s", cfg.Auth.JWTAccessTTL)
	}
	if cfg.Sentry.DSN == "" {
		t.Fatalf("expected sentry dsn from env")
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Fatalf("unexpected postgres max conns: %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{name: "bad duration", env: map[string]string{"JWT_ACCESS_TTL": "soon"}},
		{name: "default secret in production", env: map[string]string{"APP_ENV": "prod"}},
		{name: "negative cost", yaml: "economy:\n  reveal_cost: -1\n"},
		{name: "empty postgres dsn", yaml: "postgres:\n  dsn: \"\"\n"},
		{name: "bad max conns", env: map[string]string{"POSTGRES_MAX_CONNS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "config.yaml")
				if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
					t.Fatalf("write temp config: %v", err)
				}
			}

			if _, err := Load(path); err == nil {
				t.Fatalf("expected load error")
			}
		})
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FILE",
		"STORAGE_DRIVER",
		"POSTGRES_DSN",
		"POSTGRES_MAX_CONNS",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"JWT_SECRET",
		"JWT_ISSUER",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"SENTRY_DSN",
		"RATE_LIKES_PER_MINUTE",
		"RATE_MESSAGES_PER_10SEC",
		"RATE_JOINS_PER_MINUTE",
		"WORKER_CLEANUP_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}
