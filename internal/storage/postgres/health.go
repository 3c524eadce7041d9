package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoMigrations is returned by SchemaVersion before any migration has run.
var ErrNoMigrations = errors.New("no migrations applied")

// SchemaVersion returns the golang-migrate version and dirty flag.
func (r *Repository) SchemaVersion(ctx context.Context) (int64, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := r.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, ErrNoMigrations
		}
		return 0, false, fmt.Errorf("query schema version: %w", err)
	}
	return version, dirty, nil
}

// ActiveJobs counts available and running River jobs. installed is false when
// the River tables have not been migrated.
func (r *Repository) ActiveJobs(ctx context.Context) (count int64, installed bool, err error) {
	if err := r.pool.QueryRow(ctx, `SELECT to_regclass('public.river_job') IS NOT NULL`).Scan(&installed); err != nil {
		return 0, false, fmt.Errorf("check river_job: %w", err)
	}
	if !installed {
		return 0, false, nil
	}
	err = r.pool.QueryRow(ctx, `SELECT count(*) FROM river_job WHERE state = ANY($1)`, []string{"available", "running"}).Scan(&count)
	if err != nil {
		return 0, true, fmt.Errorf("count river jobs: %w", err)
	}
	return count, true, nil
}

// PoolStats reports connection pool usage for the detailed health check.
func (r *Repository) PoolStats() map[string]any {
	stats := r.pool.Stat()
	return map[string]any{
		"max_connections":      stats.MaxConns(),
		"total_connections":    stats.TotalConns(),
		"idle_connections":     stats.IdleConns(),
		"acquired_connections": stats.AcquiredConns(),
	}
}
