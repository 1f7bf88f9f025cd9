package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type Action string

const (
	ActionLike    Action = "likes"
	ActionMessage Action = "messages"
	ActionJoin    Action = "joins"
)

// Rule allows at most Max actions per fixed Window.
type Rule struct {
	Window time.Duration
	Max    int
}

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

type Limiter struct {
	store WindowStore
	rules map[Action][]Rule
}

func NewLimiter(store WindowStore, rules map[Action][]Rule) *Limiter {
	cleaned := make(map[Action][]Rule, len(rules))
	for action, list := range rules {
		for _, rule := range list {
			if rule.Max <= 0 || rule.Window <= 0 {
				continue
			}
			cleaned[action] = append(cleaned[action], rule)
		}
	}

	return &Limiter{
		store: store,
		rules: cleaned,
	}
}

// Allow counts one action and reports whether it fits every window of the action.
func (l *Limiter) Allow(ctx context.Context, action Action, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, rule := range l.rules[action] {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(action, rule.Window, userID), rule.Window)
		if err != nil {
			return 0, false, err
		}
		if count > int64(rule.Max) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// Check is Allow folded into an error, TooFastError when blocked.
func (l *Limiter) Check(ctx context.Context, action Action, userID int64) error {
	retryAfter, allowed, err := l.Allow(ctx, action, userID)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", action, err)
	}
	if !allowed {
		return TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

func (l *Limiter) RetryAfter(ctx context.Context, action Action, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, rule := range l.rules[action] {
		count, ttl, err := l.store.WindowState(ctx, windowKey(action, rule.Window, userID))
		if err != nil {
			return 0, err
		}
		if count >= int64(rule.Max) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

func windowKey(action Action, window time.Duration, userID int64) string {
	return "rate:" + string(action) + ":" + windowLabel(window) + ":" + strconv.FormatInt(userID, 10)
}

func windowLabel(window time.Duration) string {
	if window%time.Minute == 0 {
		return strconv.FormatInt(int64(window/time.Minute), 10) + "m"
	}
	return strconv.FormatInt(int64(window/time.Second), 10) + "s"
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
