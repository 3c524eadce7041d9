package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/eventreg/internal/api/problem"
	"github.com/Togather-Foundation/eventreg/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token. The verified claims
// are stored in the request context.
func JWTAuth(validator TokenValidator, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(r, validator)
			if err != nil {
				writeUnauthorized(w, r, err, env)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// OptionalJWTAuth attaches claims when a bearer token is present. A missing
// token is anonymous; a present but invalid one is still rejected.
func OptionalJWTAuth(validator TokenValidator, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := claimsFromRequest(r, validator)
			if err != nil {
				writeUnauthorized(w, r, err, env)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

func claimsFromRequest(r *http.Request, validator TokenValidator) (*auth.Claims, error) {
	if validator == nil {
		return nil, auth.ErrInvalidToken
	}
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return validator.Validate(token)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error, env string) {
	detail := "a valid bearer token is required"
	if errors.Is(err, auth.ErrExpiredToken) {
		detail = "token has expired"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="eventreg"`)
	problem.Respond(w, r, problem.Unauthorized, err, env, problem.WithDetail(detail))
}

func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// UserIDFromContext returns the authenticated user's ID, or "" when the
// request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID()
	}
	return ""
}
