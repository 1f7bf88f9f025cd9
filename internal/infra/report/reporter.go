package report

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type Options struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// Reporter logs unexpected errors and forwards them to Sentry when a DSN is
// configured.
type Reporter struct {
	log     *zap.Logger
	enabled bool
}

func New(opts Options, log *zap.Logger) (*Reporter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DSN == "" {
		return &Reporter{log: log}, nil
	}

	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		SampleRate:  sampleRate,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	return &Reporter{log: log, enabled: true}, nil
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Capture records err with tags. Safe on a nil Reporter.
func (r *Reporter) Capture(_ context.Context, err error, tags map[string]string) {
	if r == nil || err == nil {
		return
	}

	fields := make([]zap.Field, 0, len(tags)+1)
	fields = append(fields, zap.Error(err))
	for k, v := range tags {
		fields = append(fields, zap.String(k, v))
	}
	r.log.Error("unexpected error", fields...)

	if !r.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (r *Reporter) Flush(timeout time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(timeout)
}
