package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
		trace.WithSampler(trace.AlwaysSample()),
	)
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})
	return exporter
}

func TestTracing(t *testing.T) {
	exporter := withTestTracer(t)

	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/01HZY3M3K5Q7V9X2B4D6F8H0JA/register", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]

	if want := "POST /api/v1/events/{id}/register"; span.Name != want {
		t.Errorf("expected span name %q, got %q", want, span.Name)
	}

	attrs := map[string]any{}
	for _, attr := range span.Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	if attrs["http.method"] != "POST" {
		t.Errorf("expected http.method=POST, got %v", attrs["http.method"])
	}
	if attrs["http.route"] != "/api/v1/events/{id}/register" {
		t.Errorf("expected collapsed http.route, got %v", attrs["http.route"])
	}
	if attrs["http.status_code"] != int64(http.StatusCreated) {
		t.Errorf("expected http.status_code=201, got %v", attrs["http.status_code"])
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("expected ok status, got %v", span.Status.Code)
	}
}

func TestTracing_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   codes.Code
	}{
		{status: http.StatusConflict, want: codes.Ok},
		{status: http.StatusNotFound, want: codes.Ok},
		{status: http.StatusInternalServerError, want: codes.Error},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			exporter := withTestTracer(t)
			handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Status.Code != tt.want {
				t.Errorf("status %d: expected span code %v, got %v", tt.status, tt.want, spans[0].Status.Code)
			}
		})
	}
}

func TestTracing_RecordsRequestID(t *testing.T) {
	exporter := withTestTracer(t)

	handler := CorrelationID(testLogger())(Tracing(okHandler()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	found := false
	for _, attr := range spans[0].Attributes {
		if attr.Key == "request_id" && attr.Value.AsString() == "req-123" {
			found = true
		}
	}
	if !found {
		t.Error("request_id attribute not found")
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	_, _ = sw.Write([]byte("ok"))
	if sw.status() != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", sw.status())
	}

	rec = httptest.NewRecorder()
	sw = &statusWriter{ResponseWriter: rec}
	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)
	if sw.status() != http.StatusCreated || rec.Code != http.StatusCreated {
		t.Errorf("expected first status 201 captured and forwarded, got %d/%d", sw.status(), rec.Code)
	}
}
