package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/config"
	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/repo/memory"
	pgrepo "github.com/ivankudzin/blinddate/internal/repo/postgres"
	redrepo "github.com/ivankudzin/blinddate/internal/repo/redis"
	authsvc "github.com/ivankudzin/blinddate/internal/services/auth"
	"github.com/ivankudzin/blinddate/internal/services/blinddate"
	"github.com/ivankudzin/blinddate/internal/services/ledger"
	likessvc "github.com/ivankudzin/blinddate/internal/services/likes"
	"github.com/ivankudzin/blinddate/internal/services/matchqueue"
	ratesvc "github.com/ivankudzin/blinddate/internal/services/rate"
)

type profileStore interface {
	matchqueue.ProfileStore
	blinddate.ProfileReader
}

type stores struct {
	wallets  ledger.WalletStore
	profiles profileStore
	users    authsvc.UserDirectory
	queue    matchqueue.QueueStore
	sessions blinddate.SessionStore
	likes    likessvc.LikeStore
}

// Core holds the storage clients and domain services shared by the api and
// worker processes.
type Core struct {
	Config   config.Config
	Logger   *zap.Logger
	Postgres *pgxpool.Pool
	Redis    *goredis.Client
	// Memory is set only for the memory storage driver.
	Memory *memory.Store

	Ledger   *ledger.Service
	Sessions *blinddate.Service
	Queue    *matchqueue.Service
	Likes    *likessvc.Service
	Auth     *authsvc.Service
	Limiter  *ratesvc.Limiter
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Core, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	core := &Core{Config: cfg, Logger: log}

	st, err := core.openStores(ctx)
	if err != nil {
		return nil, err
	}

	core.Redis = redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	redisUp := true
	if err := redrepo.Ping(ctx, core.Redis); err != nil {
		redisUp = false
		log.Warn("redis ping failed, continuing without rate limits", zap.Error(err))
	}

	economy := cfg.Economy
	core.Ledger = ledger.NewService(st.wallets, ledger.Config{
		MaxFreeLikes:      economy.MaxFreeLikes,
		LikeRegenInterval: economy.LikeRegenInterval,
		LikesPackCost:     economy.LikesPackCost,
		LikesPackSize:     economy.LikesPackSize,
		ChatSlotCost:      economy.ChatSlotCost,
		CoinPacks:         economy.CoinPacks,
		MaxGrant:          economy.MaxGrant,
	}, log.Named("ledger"))
	core.Sessions = blinddate.NewService(st.sessions, st.queue, st.profiles, core.Ledger, blinddate.Config{
		ExtensionCost:     economy.ExtensionCost,
		ExtensionDuration: economy.ExtensionDuration,
		MaxMessageLength:  economy.MaxMessageLength,
	}, log.Named("blinddate"))
	core.Queue = matchqueue.NewService(st.profiles, st.queue, core.Sessions, matchqueue.Config{
		QueueTTL:        economy.QueueTTL,
		SessionDuration: economy.SessionDuration,
	}, log.Named("matchqueue"))
	core.Likes = likessvc.NewService(st.likes, st.profiles, core.Ledger, likessvc.Config{
		RevealCost:     economy.RevealCost,
		StartChatCost:  economy.StartChatCost,
		DirectChatCost: economy.DirectChatCost,
	}, log.Named("likes"))

	if redisUp {
		core.Limiter = ratesvc.NewLimiter(redrepo.NewRateRepo(core.Redis), RateRules(cfg.Rate))
		core.Queue.AttachRateLimiter(core.Limiter)
		core.Sessions.AttachRateLimiter(core.Limiter)
		core.Likes.AttachRateLimiter(core.Limiter)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.Issuer, cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	core.Auth = authsvc.NewService(jwtManager, redrepo.NewSessionRepo(core.Redis), st.users, cfg.Auth.RefreshTTL, log.Named("auth"))

	log.Info("core services ready", zap.String("storage", cfg.Storage.Driver))
	return core, nil
}

func (c *Core) openStores(ctx context.Context) (stores, error) {
	defaults := model.WalletDefaults{
		Coins:     c.Config.Economy.StartCoins,
		Likes:     c.Config.Economy.MaxFreeLikes,
		ChatSlots: c.Config.Economy.StartChatSlots,
	}

	switch c.Config.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.NewStore(defaults)
		c.Memory = store
		return stores{
			wallets:  store,
			profiles: store,
			users:    store,
			queue:    store,
			sessions: store,
			likes:    store,
		}, nil
	case config.StorageDriverPostgres:
		pool, err := pgrepo.NewPool(ctx, c.Config.Postgres.DSN, c.Config.Postgres.MaxConns)
		if err != nil {
			return stores{}, err
		}
		c.Postgres = pool
		return stores{
			wallets:  pgrepo.NewWalletRepo(pool, defaults),
			profiles: pgrepo.NewProfileRepo(pool),
			users:    pgrepo.NewUserRepo(pool),
			queue:    pgrepo.NewQueueRepo(pool),
			sessions: pgrepo.NewBlindSessionRepo(pool),
			likes:    pgrepo.NewLikeRepo(pool),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown storage driver %q", c.Config.Storage.Driver)
	}
}

// RateRules turns the per-user rate settings into limiter windows.
func RateRules(cfg config.RateConfig) map[ratesvc.Action][]ratesvc.Rule {
	return map[ratesvc.Action][]ratesvc.Rule{
		ratesvc.ActionLike:    {{Window: time.Minute, Max: cfg.LikesPerMinute}},
		ratesvc.ActionMessage: {{Window: 10 * time.Second, Max: cfg.MessagesPer10Sec}},
		ratesvc.ActionJoin:    {{Window: time.Minute, Max: cfg.JoinsPerMinute}},
	}
}

// Checks returns the dependency checks for the health endpoint.
func (c *Core) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"redis": func(ctx context.Context) error {
			return redrepo.Ping(ctx, c.Redis)
		},
	}
	if c.Postgres != nil {
		checks["postgres"] = func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return c.Postgres.Ping(ctx)
		}
	}
	return checks
}

func (c *Core) Close() error {
	var errs []error
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
