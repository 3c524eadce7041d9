package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindRegistrationConfirmed = "registration_confirmed"
	JobKindRegistrationCancelled = "registration_cancelled"
)

const (
	QueueNotifications = "notifications"

	DefaultMaxAttempts      = 5
	NotificationMaxAttempts = 5
	DefaultMaxWorkers       = 10
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy returns the retry policy for notification jobs. A
// non-positive notificationAttempts falls back to NotificationMaxAttempts.
func NewRetryPolicy(notificationAttempts int) *RetryPolicy {
	if notificationAttempts <= 0 {
		notificationAttempts = NotificationMaxAttempts
	}
	notification := RetryConfig{
		MaxAttempts: notificationAttempts,
		BaseDelay:   30 * time.Second,
		MaxDelay:    30 * time.Minute,
	}
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   1 * time.Minute,
			MaxDelay:    1 * time.Hour,
		},
		ByKind: map[string]RetryConfig{
			JobKindRegistrationConfirmed: notification,
			JobKindRegistrationCancelled: notification,
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	cfg := p.configFor(job.Kind)
	if cfg.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOpts returns insert options for a job kind. Notification kinds go to
// their own queue so a slow mail provider cannot starve other work.
func (p *RetryPolicy) InsertOpts(kind string) river.InsertOpts {
	opts := river.InsertOpts{MaxAttempts: p.configFor(kind).MaxAttempts}
	if _, ok := p.ByKind[kind]; ok {
		opts.Queue = QueueNotifications
	}
	return opts
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: DefaultMaxAttempts, BaseDelay: 1 * time.Minute, MaxDelay: 1 * time.Hour}
	}
	if cfg, ok := p.ByKind[kind]; ok {
		return cfg
	}
	return p.Default
}

// NewClientConfig builds a River client configuration. A nil workers bundle
// yields an insert-only configuration with no queues.
func NewClientConfig(cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook) *river.Config {
	policy := NewRetryPolicy(cfg.NotificationRetries)
	riverConfig := &river.Config{
		RetryPolicy: policy,
		MaxAttempts: policy.Default.MaxAttempts,
		Hooks:       hooks,
	}
	if workers != nil {
		maxWorkers := cfg.MaxWorkers
		if maxWorkers <= 0 {
			maxWorkers = DefaultMaxWorkers
		}
		riverConfig.Workers = workers
		riverConfig.Queues = map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			QueueNotifications: {MaxWorkers: maxWorkers},
		}
	}
	if logger != nil {
		riverConfig.Logger = logger
		riverConfig.ErrorHandler = NewAlertingErrorHandler(logger, nil)
	}
	return riverConfig
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(cfg, workers, logger, hooks))
}

// MigrateRiver applies River's own schema migrations.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	var migrateConfig *rivermigrate.Config
	if logger != nil {
		migrateConfig = &rivermigrate.Config{Logger: logger}
	}
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), migrateConfig)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("migrate river schema: %w", err)
	}
	if logger != nil {
		logger.Info("river migrations applied", "versions", len(res.Versions))
	}
	return nil
}
