package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/metrics"
)

const checkTimeout = 2 * time.Second

// HealthProbe is implemented by the postgres repository.
type HealthProbe interface {
	Ping(ctx context.Context) error
	PoolStats() map[string]any
	SchemaVersion(ctx context.Context) (version int64, dirty bool, err error)
	ActiveJobs(ctx context.Context) (count int64, installed bool, err error)
}

type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthChecker serves /health, /healthz and /readyz.
type HealthChecker struct {
	probe       HealthProbe
	jobsEnabled bool
	version     string
	gitCommit   string
	now         func() time.Time
}

func NewHealthChecker(probe HealthProbe, jobsEnabled bool, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		probe:       probe,
		jobsEnabled: jobsEnabled,
		version:     version,
		gitCommit:   gitCommit,
		now:         time.Now,
	}
}

// Health runs every check and reports healthy, degraded (a warning) or
// unhealthy (503).
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
		}

		overall := "healthy"
		statusCode := http.StatusOK
		for name, check := range checks {
			metrics.HealthCheckStatus.WithLabelValues(name).Set(statusValue(check.Status))
			switch check.Status {
			case "fail":
				overall = "unhealthy"
				statusCode = http.StatusServiceUnavailable
			case "warn":
				if overall == "healthy" {
					overall = "degraded"
				}
			}
		}

		writeJSON(w, statusCode, HealthCheck{
			Status:    overall,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: h.now().UTC().Format(time.RFC3339),
		})
	}
}

func statusValue(status string) float64 {
	switch status {
	case "pass":
		return 2
	case "warn":
		return 1
	}
	return 0
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.probe == nil {
		return CheckResult{
			Status:  "fail",
			Message: "Database pool not initialized",
			Details: map[string]any{"remediation": "Check that DATABASE_URL is set correctly and PostgreSQL is running"},
		}
	}

	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := h.probe.Ping(dbCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message, remediation := describeDatabaseError(err, dbCtx.Err())
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": remediation},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   "PostgreSQL connection successful",
		LatencyMs: latency,
		Details:   h.probe.PoolStats(),
	}
}

func describeDatabaseError(err, ctxErr error) (string, string) {
	text := err.Error()
	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return "Database query timed out", "Check PostgreSQL performance and network latency"
	case strings.Contains(text, "connection refused"):
		return "Database connection refused", "Verify PostgreSQL is running and DATABASE_URL host/port are correct"
	case strings.Contains(text, "no such host"):
		return "Cannot reach database host", "Check DATABASE_URL hostname and network connectivity"
	case strings.Contains(text, "authentication failed"):
		return "Database authentication failed", "Verify DATABASE_URL username and password"
	case strings.Contains(text, "does not exist"):
		return "Database does not exist", "Create the database or fix the DATABASE_URL database name"
	}
	return "Database query failed", "Check DATABASE_URL and PostgreSQL service status"
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.probe == nil {
		return CheckResult{Status: "fail", Message: "Database pool not initialized"}
	}

	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	version, dirty, err := h.probe.SchemaVersion(migCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		remediation := "Run database migrations: server migrate up"
		if !strings.Contains(err.Error(), "does not exist") && !strings.Contains(err.Error(), "no migrations") {
			remediation = "Check database connectivity and schema_migrations permissions"
		}
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to read migration version",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": remediation},
		}
	}
	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details: map[string]any{
				"version":     version,
				"dirty":       true,
				"remediation": "Fix the failed migration, then run: server migrate force <version>",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

// checkJobQueue only warns: registrations still succeed without the queue,
// notifications are just not delivered.
func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !h.jobsEnabled {
		return CheckResult{Status: "warn", Message: "Job queue disabled; notifications are not sent"}
	}
	if h.probe == nil {
		return CheckResult{Status: "fail", Message: "Database pool not initialized"}
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	count, installed, err := h.probe.ActiveJobs(jobCtx)
	latency := time.Since(start).Milliseconds()
	switch {
	case err != nil:
		return CheckResult{
			Status:    "warn",
			Message:   "Failed to query job queue",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	case !installed:
		return CheckResult{
			Status:    "warn",
			Message:   "River job queue table not found",
			LatencyMs: latency,
			Details:   map[string]any{"remediation": "Run: server migrate up"},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"active_jobs": count},
	}
}

// Healthz is the liveness probe; it never touches the database.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz reports ready once the database answers.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.probe == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		if err := h.probe.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}
