package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/api"
	"github.com/Togather-Foundation/eventreg/internal/api/handlers"
	"github.com/Togather-Foundation/eventreg/internal/config"
	"github.com/Togather-Foundation/eventreg/internal/metrics"
	"github.com/Togather-Foundation/eventreg/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout          = 15 * time.Second
	dbMetricsInterval        = 15 * time.Second
	startupTimeout           = 10 * time.Second
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

type serveFlags struct {
	host string
	port int
}

func newServeCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP API and, when jobs are enabled, the notification workers.

Configuration comes from environment variables, optionally layered over a
--config file. SIGINT or SIGTERM drains in-flight requests before exiting.

Examples:
  server serve
  server serve --host 127.0.0.1 --port 9090
  server serve --config /etc/eventreg/config.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if flags.host != "" {
				cfg.Server.Host = flags.host
			}
			if flags.port != 0 {
				cfg.Server.Port = flags.port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&flags.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting event registration server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(stopCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	app, err := newApplication(startCtx, cfg, logger, true)
	cancelStart()
	if err != nil {
		return err
	}
	defer app.Close()

	router := api.NewRouter(api.Deps{
		Config:        cfg,
		Logger:        logger,
		Users:         app.users,
		Events:        app.events,
		Registrations: app.registrations,
		Tokens:        app.tokens,
		Health:        handlers.NewHealthChecker(app.repo, cfg.Jobs.Enabled, Version, GitCommit),
		Build:         api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})
	defer router.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	// Workers get their own context so they keep draining until Stop is
	// called during shutdown.
	if app.river != nil {
		if err := app.river.Start(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Msg("notification workers started")
	}

	dbCollector := metrics.NewDBCollector(app.pool)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbCollector.Start(gctx, dbMetricsInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		dbCollector.Stop()
		if app.river != nil {
			if err := app.river.Stop(stopCtx); err != nil {
				errs = append(errs, fmt.Errorf("river shutdown: %w", err))
			} else {
				logger.Info().Msg("notification workers stopped")
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
