package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/eventreg/internal/api/problem"
	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/domain/ids"
	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
	"github.com/Togather-Foundation/eventreg/internal/validation"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errTrailingData = errors.New("request body must contain a single JSON object")
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads exactly one JSON value from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return errTrailingData
	}
	return nil
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

// pathID extracts and validates a ULID path parameter, writing a 400 when it
// is malformed.
func pathID(w http.ResponseWriter, r *http.Request, key, env string) (string, bool) {
	value := pathParam(r, key)
	if err := ids.ValidateULID(value); err != nil {
		fieldErr := validation.FieldError{Field: key, Message: "must be a valid ULID", Err: err}
		writeBadRequest(w, r, env, validation.Errors{fieldErr})
		return "", false
	}
	return ids.Normalize(value), true
}

// writeDecodeError reports a body that could not be parsed.
func writeDecodeError(w http.ResponseWriter, r *http.Request, env string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		problem.Respond(w, r, problem.PayloadTooLarge, err, env,
			problem.WithDetail(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit)))
		return
	}
	problem.Respond(w, r, problem.MalformedRequest, err, env)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, env string, errs validation.Errors) {
	problem.Respond(w, r, problem.ValidationFailed, errs, env,
		problem.WithDetail("one or more fields are invalid"),
		problem.WithErrors(errs.Fields()),
	)
}

type errorMapping struct {
	target error
	kind   problem.Kind
	title  string
}

// errorMappings is checked in order; the first match wins. An empty title
// keeps the catalog title.
var errorMappings = []errorMapping{
	{registrations.ErrOwnerSelfRegistration, problem.OwnerSelfRegistration, ""},
	{registrations.ErrDuplicateRegistration, problem.AlreadyRegistered, ""},
	{registrations.ErrCapacityExceeded, problem.EventFull, ""},
	{registrations.ErrEventInPast, problem.EventInPast, ""},
	{registrations.ErrNotRegistered, problem.NotRegistered, ""},
	{registrations.ErrRegistrationNotFound, problem.NotFound, "Registration not found"},
	{events.ErrPermissionDenied, problem.Forbidden, ""},
	{users.ErrInvalidCredentials, problem.InvalidCredentials, ""},
	{events.ErrNotFound, problem.NotFound, "Event not found"},
	{registrations.ErrEventNotFound, problem.NotFound, "Event not found"},
	{registrations.ErrUserNotFound, problem.NotFound, "User not found"},
	{users.ErrUserNotFound, problem.NotFound, "User not found"},
	{events.ErrOrganizerNotFound, problem.NotFound, "User not found"},
}

// writeError renders a domain error as problem+json. Rule violations carry
// their message as detail in every environment; unknown errors become 500s
// with the cause hidden outside development.
func writeError(w http.ResponseWriter, r *http.Request, env string, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeBadRequest(w, r, env, verrs)
		return
	}
	var ferr validation.FieldError
	if errors.As(err, &ferr) {
		writeBadRequest(w, r, env, validation.Errors{ferr})
		return
	}
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		writeBadRequest(w, r, env, validation.Errors{{Field: "username", Message: err.Error(), Err: err}})
		return
	case errors.Is(err, users.ErrEmailTaken):
		writeBadRequest(w, r, env, validation.Errors{{Field: "email", Message: err.Error(), Err: err}})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			opts := []problem.Option{problem.WithDetail(m.target.Error())}
			if m.title != "" {
				opts = append(opts, problem.WithTitle(m.title))
			}
			problem.Respond(w, r, m.kind, err, env, opts...)
			return
		}
	}

	problem.Respond(w, r, problem.ServerError, err, env)
}
