// Command issue-token opens an auth session for an existing user and prints
// the token pair. It stands in for the login flow, which lives elsewhere.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/app/bootstrap"
	"github.com/ivankudzin/blinddate/internal/config"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	userID := flag.Int64("user", 0, "user id to issue tokens for")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("use -user to pass the user id")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Fatal("issue-token needs the postgres storage driver")
	}

	ctx := context.Background()
	core, err := bootstrap.New(ctx, cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer func() {
		_ = core.Close()
	}()

	result, err := core.Auth.IssueForUser(ctx, *userID)
	if err != nil {
		log.Fatalf("issue tokens: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]any{
		"user_id":        result.Me.ID,
		"role":           result.Me.Role,
		"access_token":   result.AccessToken,
		"access_expires": result.AccessExpires,
		"refresh_token":  result.RefreshToken,
	}); err != nil {
		log.Fatalf("write tokens: %v", err)
	}
}
