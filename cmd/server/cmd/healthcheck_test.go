package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if s, ok := body.(string); ok {
			fmt.Fprint(w, s)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPerformHealthCheck(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          any
		allowDegraded bool
		wantHealthy   bool
		wantExit      int
	}{
		{"healthy", http.StatusOK, HealthResponse{Status: "healthy", Checks: map[string]CheckResult{"database": {Status: "pass"}}}, false, true, 0},
		{"degraded", http.StatusOK, HealthResponse{Status: "degraded"}, false, false, 1},
		{"degraded allowed", http.StatusOK, HealthResponse{Status: "degraded"}, true, true, 0},
		{"unhealthy", http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"}, false, false, 1},
		{"not json", http.StatusOK, "not json", false, false, 2},
		{"missing status", http.StatusOK, map[string]string{}, false, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := healthServer(t, tt.status, tt.body)

			result := performHealthCheck(context.Background(), server.Client(), server.URL)
			assert.Equal(t, tt.wantHealthy, result.IsHealthy(tt.allowDegraded))
			assert.GreaterOrEqual(t, result.LatencyMs, int64(0))

			err := result.exitErr(tt.allowDegraded)
			if tt.wantExit == 0 {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantExit, exitCode(err))
			}
		})
	}
}

func TestPerformHealthCheck_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := &http.Client{Timeout: 100 * time.Millisecond}
	result := performHealthCheck(context.Background(), client, server.URL)
	assert.NotEmpty(t, result.Error)
	assert.False(t, result.IsHealthy(true))
	assert.Equal(t, 1, exitCode(result.exitErr(false)))
}

func TestPerformHealthCheckWithRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "unhealthy"})
			return
		}
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
	}))
	t.Cleanup(server.Close)

	result := performHealthCheckWithRetries(context.Background(), server.URL, healthcheckFlags{
		timeout: time.Second, retries: 3, retryDelay: time.Millisecond,
	})
	assert.True(t, result.IsHealthy(false))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPerformHealthCheckWithRetries_InvalidBodyStopsEarly(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "<html>")
	}))
	t.Cleanup(server.Close)

	result := performHealthCheckWithRetries(context.Background(), server.URL, healthcheckFlags{
		timeout: time.Second, retries: 5, retryDelay: time.Millisecond,
	})
	assert.False(t, result.IsHealthy(false))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealthcheckCommand_JSONOutput(t *testing.T) {
	server := healthServer(t, http.StatusOK, HealthResponse{Status: "healthy"})

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"healthcheck", "--url", server.URL, "--format", "json"})

	require.NoError(t, cmd.Execute())
	var out HealthResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, http.StatusOK, out.HTTPStatus)
}

func TestHealthcheckCommand_UnhealthyExitCode(t *testing.T) {
	server := healthServer(t, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"healthcheck", "--url", server.URL})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}
