package cleanup

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type queuePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type sessionExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// Job drops stale queue entries and ends blind-date sessions whose deadline
// passed without anyone touching them. Reads already expire lazily; the job
// keeps the tables tidy between reads.
type Job struct {
	queue    queuePurger
	sessions sessionExpirer
	logger   *zap.Logger
}

func New(queue queuePurger, sessions sessionExpirer, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		queue:    queue,
		sessions: sessions,
		logger:   logger,
	}
}

// Run executes both sweeps. A failing sweep does not skip the other one.
func (j *Job) Run(ctx context.Context) error {
	var errs []error

	if j.queue != nil {
		purged, err := j.queue.PurgeExpired(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("purge expired queue entries: %w", err))
		} else if purged > 0 {
			j.logger.Info("cleanup queue completed", zap.Int64("purged", purged))
		}
	}

	if j.sessions != nil {
		expired, err := j.sessions.ExpireOverdue(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire overdue sessions: %w", err))
		} else if expired > 0 {
			j.logger.Info("cleanup sessions completed", zap.Int64("expired", expired))
		}
	}

	return errors.Join(errs...)
}
