package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

type healthcheckFlags struct {
	url           string
	timeout       time.Duration
	retries       int
	retryDelay    time.Duration
	allowDegraded bool
	format        string
}

func newHealthcheckCmd() *cobra.Command {
	flags := &healthcheckFlags{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check whether a running server is healthy",
		Long: `Call the /health endpoint, as used by container HEALTHCHECK.

Exit codes:
  0 - healthy (or degraded with --allow-degraded)
  1 - unhealthy or unreachable
  2 - the server answered with something that is not a health document`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := flags.url
			if url == "" {
				url = defaultHealthURL()
			}
			result := performHealthCheckWithRetries(cmd.Context(), url, *flags)
			if err := printHealthResult(cmd, result, flags.format); err != nil {
				return err
			}
			return result.exitErr(flags.allowDegraded)
		},
	}
	cmd.Flags().StringVar(&flags.url, "url", "", "health URL (default: http://localhost:$SERVER_PORT/health)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second, "per-attempt timeout")
	cmd.Flags().IntVar(&flags.retries, "retries", 1, "attempts before giving up")
	cmd.Flags().DurationVar(&flags.retryDelay, "retry-delay", time.Second, "wait between attempts")
	cmd.Flags().BoolVar(&flags.allowDegraded, "allow-degraded", false, "treat a degraded server as healthy")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format (text, json)")
	return cmd
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// CheckResult mirrors one entry of the /health checks map.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the subset of the /health document the command reads.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

type HealthResult struct {
	URL        string                 `json:"url"`
	Status     string                 `json:"status,omitempty"`
	HTTPStatus int                    `json:"http_status,omitempty"`
	LatencyMs  int64                  `json:"latency_ms"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	Error      string                 `json:"error,omitempty"`

	invalidBody bool
}

func (r HealthResult) IsHealthy(allowDegraded bool) bool {
	if r.Error != "" {
		return false
	}
	return r.Status == "healthy" || (allowDegraded && r.Status == "degraded")
}

func (r HealthResult) exitErr(allowDegraded bool) error {
	if r.IsHealthy(allowDegraded) {
		return nil
	}
	if r.invalidBody {
		return &exitError{code: 2, err: fmt.Errorf("invalid health response: %s", r.Error)}
	}
	if r.Error != "" {
		return &exitError{code: 1, err: fmt.Errorf("health check failed: %s", r.Error)}
	}
	return &exitError{code: 1, err: fmt.Errorf("server status: %s", r.Status)}
}

func performHealthCheck(ctx context.Context, client *http.Client, url string) HealthResult {
	result := HealthResult{URL: url}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp, err := client.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	result.HTTPStatus = resp.StatusCode

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status == "" {
		result.invalidBody = true
		if err == nil {
			err = errors.New("missing status field")
		}
		result.Error = err.Error()
		return result
	}
	result.Status = body.Status
	result.Checks = body.Checks
	return result
}

func performHealthCheckWithRetries(ctx context.Context, url string, flags healthcheckFlags) HealthResult {
	attempts := flags.retries
	if attempts < 1 {
		attempts = 1
	}
	client := &http.Client{Timeout: flags.timeout}

	var result HealthResult
	for i := 0; i < attempts; i++ {
		result = performHealthCheck(ctx, client, url)
		if result.IsHealthy(flags.allowDegraded) || result.invalidBody {
			return result
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(flags.retryDelay):
			}
		}
	}
	return result
}

func printHealthResult(cmd *cobra.Command, result HealthResult, format string) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if result.Error != "" {
		fmt.Fprintf(out, "%s: error: %s\n", result.URL, result.Error)
		return nil
	}
	fmt.Fprintf(out, "%s: %s (%dms)\n", result.URL, result.Status, result.LatencyMs)
	for name, check := range result.Checks {
		fmt.Fprintf(out, "  %-12s %s %s\n", name, check.Status, check.Message)
	}
	return nil
}
