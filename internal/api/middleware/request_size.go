package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/eventreg/internal/api/problem"
)

// DefaultMaxBodySize caps JSON request bodies at 1MB.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize wraps the request body with http.MaxBytesReader. Reading past
// maxBytes fails with *http.MaxBytesError, which handlers report as 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				problem.WriteProblem(w, problem.ProblemDetails{
					Type:     problem.PayloadTooLarge.Type(),
					Title:    problem.PayloadTooLarge.Title,
					Status:   problem.PayloadTooLarge.Status,
					Instance: r.URL.Path,
				})
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PublicRequestSize applies DefaultMaxBodySize.
func PublicRequestSize() func(http.Handler) http.Handler {
	return RequestSize(DefaultMaxBodySize)
}
