package workerapp

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/app/bootstrap"
	"github.com/ivankudzin/blinddate/internal/config"
	"github.com/ivankudzin/blinddate/internal/infra/report"
	"github.com/ivankudzin/blinddate/internal/jobs/cleanup"
)

type job interface {
	Run(ctx context.Context) error
}

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	core     *bootstrap.Core
	reporter *report.Reporter
	cron     *cron.Cron
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	core, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("bootstrap core: %w", err)
	}

	reporter, err := report.New(report.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Env,
		SampleRate:  cfg.Sentry.SampleRate,
	}, log.Named("report"))
	if err != nil {
		_ = core.Close()
		return nil, err
	}

	cronLog := cronLogger{log: log.Named("cron").Sugar()}
	scheduler := cron.New(cron.WithLogger(cronLog), cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	app := &App{
		cfg:      cfg,
		logger:   log,
		core:     core,
		reporter: reporter,
		cron:     scheduler,
	}

	cleanupJob := cleanup.New(core.Queue, core.Sessions, log.Named("cleanup"))
	if _, err := scheduler.AddFunc(cfg.Worker.CleanupSchedule, app.wrap("cleanup", cleanupJob)); err != nil {
		_ = core.Close()
		return nil, fmt.Errorf("schedule cleanup job %q: %w", cfg.Worker.CleanupSchedule, err)
	}

	return app, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker started", zap.String("cleanup_schedule", a.cfg.Worker.CleanupSchedule))
	a.cron.Start()

	<-ctx.Done()

	stopped := a.cron.Stop()
	<-stopped.Done()
	a.reporter.Flush(2 * time.Second)

	if err := a.core.Close(); err != nil {
		return err
	}
	a.logger.Info("worker stopped")
	return nil
}

func (a *App) wrap(name string, j job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Worker.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := j.Run(ctx); err != nil {
			a.reporter.Capture(ctx, err, map[string]string{"job": name})
			return
		}
		a.logger.Debug("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	}
}

// cronLogger routes scheduler logs into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
