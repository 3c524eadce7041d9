// Package problem writes RFC 7807 problem+json responses and holds the
// catalog of problem types the API can return.
package problem

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// TypeBase prefixes every problem type URI emitted by the API.
const TypeBase = "https://eventreg.dev/problems/"

type ProblemDetails struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Status    int            `json:"status"`
	Detail    string         `json:"detail,omitempty"`
	Instance  string         `json:"instance,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Errors    map[string]any `json:"errors,omitempty"`
}

// Kind is one entry in the catalog. Each rule a request can break has its own
// slug so clients can tell responses with the same status apart.
type Kind struct {
	Status int
	Slug   string
	Title  string
}

// Type returns the problem type URI for k.
func (k Kind) Type() string { return TypeURI(k.Slug) }

var (
	ValidationFailed = Kind{http.StatusBadRequest, "validation-error", "Validation failed"}
	MalformedRequest = Kind{http.StatusBadRequest, "malformed-request", "Malformed request body"}
	PayloadTooLarge  = Kind{http.StatusRequestEntityTooLarge, "payload-too-large", "Request body too large"}

	Unauthorized       = Kind{http.StatusUnauthorized, "unauthorized", "Unauthorized"}
	InvalidCredentials = Kind{http.StatusUnauthorized, "invalid-credentials", "Invalid credentials"}
	Forbidden          = Kind{http.StatusForbidden, "forbidden", "Permission denied"}

	OwnerSelfRegistration = Kind{http.StatusForbidden, "owner-self-registration", "Organizer cannot register"}
	AlreadyRegistered     = Kind{http.StatusConflict, "already-registered", "Already registered"}
	EventFull             = Kind{http.StatusConflict, "event-full", "Event is full"}
	EventInPast           = Kind{http.StatusConflict, "event-in-past", "Event has already happened"}
	NotRegistered         = Kind{http.StatusConflict, "not-registered", "Not registered"}

	NotFound    = Kind{http.StatusNotFound, "not-found", "Not found"}
	RateLimited = Kind{http.StatusTooManyRequests, "rate-limited", "Too many requests"}
	ServerError = Kind{http.StatusInternalServerError, "server-error", "Server error"}
)

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithTitle(title string) Option {
	return func(p *ProblemDetails) {
		p.Title = title
	}
}

// WithErrors attaches per-field messages, keyed by field name.
func WithErrors(errs map[string]any) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

// TypeURI returns the problem type URI for slug, e.g. "event-full".
func TypeURI(slug string) string {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return "about:blank"
	}
	return TypeBase + slug
}

// Respond writes the catalog entry k for err.
func Respond(w http.ResponseWriter, r *http.Request, k Kind, err error, env string, opts ...Option) {
	Write(w, r, k.Status, k.Type(), k.Title, err, env, opts...)
}

// Write renders a problem response. Outside development and test the raw
// error text is replaced with the status text unless WithDetail was given.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	p := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if p.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(status)
		}
	}
	if r != nil {
		p.Instance = r.URL.Path
	}

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(p.Title)
	}

	WriteProblem(w, p)
}

// WriteProblem encodes p as-is. The request ID echoed by the correlation
// middleware is copied into the body when present.
func WriteProblem(w http.ResponseWriter, p ProblemDetails) {
	if p.RequestID == "" {
		p.RequestID = w.Header().Get("X-Request-ID")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		payload = []byte(`{"type":"about:blank","title":"Internal Server Error","status":500}`)
		p.Status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
