package cmd

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/eventreg/internal/audit"
	"github.com/Togather-Foundation/eventreg/internal/auth"
	"github.com/Togather-Foundation/eventreg/internal/clock"
	"github.com/Togather-Foundation/eventreg/internal/config"
	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
	"github.com/Togather-Foundation/eventreg/internal/email"
	"github.com/Togather-Foundation/eventreg/internal/jobs"
	"github.com/Togather-Foundation/eventreg/internal/metrics"
	"github.com/Togather-Foundation/eventreg/internal/storage/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

// application holds the wired services shared by serve and the admin
// subcommands.
type application struct {
	pool          *pgxpool.Pool
	repo          *postgres.Repository
	river         *river.Client[pgx.Tx]
	tokens        *auth.JWTManager
	users         *users.Service
	events        *events.Service
	registrations *registrations.Service
}

// openPool connects with the configured pool limits.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 && int32(cfg.MaxIdle) <= poolCfg.MaxConns {
		poolCfg.MinConns = int32(cfg.MaxIdle)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// newApplication wires repositories and services. With withWorkers the River
// client also runs the notification workers; otherwise it only inserts jobs.
// With jobs disabled no queue is attached and notifications are skipped.
func newApplication(ctx context.Context, cfg config.Config, logger zerolog.Logger, withWorkers bool) (*application, error) {
	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	app := &application{pool: pool}
	var queue postgres.NoticeQueue
	if cfg.Jobs.Enabled {
		var workers *river.Workers
		if withWorkers {
			mailer, err := email.NewService(cfg.Email, cfg.Server.BaseURL, logger)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("email service: %w", err)
			}
			workers = jobs.NewWorkers(mailer)
		}
		hooks := []rivertype.Hook{metrics.NewRiverMetricsHook()}
		client, err := jobs.NewClient(pool, cfg.Jobs, workers, config.NewSlogLogger(cfg.Logging), hooks)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("river client: %w", err)
		}
		app.river = client
		queue = jobs.NewNoticeQueue(client, jobs.NewRetryPolicy(cfg.Jobs.NotificationRetries))
	} else {
		logger.Warn().Msg("jobs disabled; registration notifications will not be sent")
	}

	repo, err := postgres.NewRepository(pool, queue)
	if err != nil {
		pool.Close()
		return nil, err
	}
	app.repo = repo

	auditLogger := audit.NewLogger(logger)
	app.tokens = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
	app.users = users.NewService(repo.Users(), app.tokens, logger)
	app.events = events.NewService(repo.Events(), clock.System(), auditLogger, logger)
	app.registrations = registrations.NewService(repo.Registrations(), clock.System(), auditLogger, logger)
	return app, nil
}

func (a *application) Close() {
	a.pool.Close()
}
