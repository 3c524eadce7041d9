package api

import (
	"net/http"

	"github.com/Togather-Foundation/eventreg/internal/api/handlers"
	"github.com/Togather-Foundation/eventreg/internal/api/middleware"
	"github.com/Togather-Foundation/eventreg/internal/config"
	"github.com/Togather-Foundation/eventreg/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// BuildInfo is stamped into the binary via ldflags.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config        config.Config
	Logger        zerolog.Logger
	Users         handlers.UserService
	Events        handlers.EventService
	Registrations handlers.RegistrationService
	Tokens        middleware.TokenValidator
	Health        *handlers.HealthChecker
	Build         BuildInfo
}

// Router is the root handler. Close releases the rate limiter's janitor.
type Router struct {
	http.Handler
	limiter *middleware.RateLimiter
}

func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

type middlewareFunc = func(http.Handler) http.Handler

// chain wraps h so the first middleware listed runs first.
func chain(h http.Handler, mws ...middlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func NewRouter(deps Deps) *Router {
	cfg := deps.Config
	env := cfg.Environment

	limiter := middleware.NewRateLimiter(cfg.RateLimit, env)
	public := limiter.Tier(middleware.TierPublic)
	write := limiter.Tier(middleware.TierWrite)
	login := limiter.Tier(middleware.TierLogin)
	body := middleware.PublicRequestSize()
	requireAuth := middleware.JWTAuth(deps.Tokens, env)
	optionalAuth := middleware.OptionalJWTAuth(deps.Tokens, env)

	usersHandler := handlers.NewUsersHandler(deps.Users, deps.Registrations, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, deps.Registrations, env, cfg.Server.BaseURL)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc, mws ...middlewareFunc) {
		mux.Handle(pattern, chain(h, mws...))
	}

	mux.Handle("GET /healthz", handlers.Healthz())
	if deps.Health != nil {
		mux.Handle("GET /readyz", deps.Health.Readyz())
		mux.Handle("GET /health", deps.Health.Health())
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /version", VersionHandler(deps.Build.Version, deps.Build.GitCommit, deps.Build.BuildDate))
	mux.Handle("GET /api/v1/openapi.json", OpenAPIHandler(deps.Build.Version, cfg.Server.BaseURL))

	handle("POST /api/v1/auth/signup", usersHandler.Signup, login, body)
	handle("POST /api/v1/auth/login", usersHandler.Login, login, body)

	handle("GET /api/v1/users/me", usersHandler.Me, public, requireAuth)
	handle("GET /api/v1/users/me/registrations", usersHandler.MyRegistrations, public, requireAuth)
	handle("GET /api/v1/users/me/registrations/{id}", usersHandler.MyRegistration, public, requireAuth)
	handle("GET /api/v1/users/{id}", usersHandler.Get, public, requireAuth)

	handle("GET /api/v1/events", eventsHandler.List, public, optionalAuth)
	handle("POST /api/v1/events", eventsHandler.Create, write, body, requireAuth)
	handle("GET /api/v1/events/{id}", eventsHandler.Get, public, optionalAuth)
	handle("PATCH /api/v1/events/{id}", eventsHandler.Patch, write, body, requireAuth)
	handle("PUT /api/v1/events/{id}", eventsHandler.Put, write, body, requireAuth)
	handle("DELETE /api/v1/events/{id}", eventsHandler.Delete, write, requireAuth)
	handle("POST /api/v1/events/{id}/register", eventsHandler.Register, write, requireAuth)
	handle("POST /api/v1/events/{id}/unregister", eventsHandler.Unregister, write, requireAuth)
	handle("GET /api/v1/events/{id}/attendees", eventsHandler.Attendees, public)
	handle("GET /api/v1/events/{id}/capacity", eventsHandler.Capacity, public, optionalAuth)

	root := chain(mux,
		middleware.Tracing,
		middleware.CorrelationID(deps.Logger),
		middleware.RequestLogging(deps.Logger),
		metrics.HTTPMiddleware,
		middleware.SecurityHeaders(env == "production"),
		middleware.CORS(cfg.CORS, deps.Logger),
	)
	return &Router{Handler: root, limiter: limiter}
}
