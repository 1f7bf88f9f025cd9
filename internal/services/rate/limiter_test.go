package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/ivankudzin/blinddate/internal/repo/redis"
)

func TestLimiterBlocksOn10SecondWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, map[Action][]Rule{
		ActionMessage: {{Window: 10 * time.Second, Max: 2}},
	})

	ctx := context.Background()
	userID := int64(42)

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, ActionMessage, userID)
		if err != nil {
			t.Fatalf("allow message #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, ActionMessage, userID)
	if err != nil {
		t.Fatalf("allow message #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third action in 10s window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfter(ctx, ActionMessage, userID)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, ActionMessage, userID)
	if err != nil {
		t.Fatalf("allow message after 10s window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, map[Action][]Rule{
		ActionLike: {{Window: time.Minute, Max: 3}},
	})

	ctx := context.Background()
	userID := int64(77)

	for i := 0; i < 3; i++ {
		if err := limiter.Check(ctx, ActionLike, userID); err != nil {
			t.Fatalf("check like #%d: %v", i+1, err)
		}
	}

	err := limiter.Check(ctx, ActionLike, userID)
	tf, ok := IsTooFast(err)
	if !ok {
		t.Fatalf("expected too fast error on fourth action, got %v", err)
	}
	if tf.RetryAfter() <= 0 {
		t.Fatalf("expected positive retry_after, got %d", tf.RetryAfter())
	}
}

func TestLimiterKeepsActionsApart(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), map[Action][]Rule{
		ActionJoin: {{Window: time.Minute, Max: 1}},
		ActionLike: {{Window: time.Minute, Max: 1}},
	})

	ctx := context.Background()
	if err := limiter.Check(ctx, ActionJoin, 5); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := limiter.Check(ctx, ActionLike, 5); err != nil {
		t.Fatalf("like after join should not be limited: %v", err)
	}
	if _, ok := IsTooFast(limiter.Check(ctx, ActionJoin, 5)); !ok {
		t.Fatalf("expected second join to be limited")
	}
	if !mr.Exists("rate:joins:1m:5") {
		t.Fatalf("expected join window key to exist")
	}
}

func TestLimiterWithoutRulesAllows(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), map[Action][]Rule{
		ActionLike: {{Window: time.Minute, Max: 0}},
	})

	for i := 0; i < 10; i++ {
		if err := limiter.Check(context.Background(), ActionLike, 9); err != nil {
			t.Fatalf("check #%d: %v", i+1, err)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
