package handlers

import (
	"net/http"
	"strings"

	"github.com/Togather-Foundation/eventreg/internal/api/middleware"
	"github.com/Togather-Foundation/eventreg/internal/api/problem"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
	"github.com/Togather-Foundation/eventreg/internal/validation"
)

type UsersHandler struct {
	Users         UserService
	Registrations RegistrationService
	Env           string
}

func NewUsersHandler(usersService UserService, registrationsService RegistrationService, env string) *UsersHandler {
	return &UsersHandler{Users: usersService, Registrations: registrationsService, Env: env}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates an account and returns it with a token (201).
func (h *UsersHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input users.SignupInput
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, h.Env, err)
		return
	}

	result, err := h.Users.Signup(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: presentUser(result.User, true), Token: result.Token})
}

// Login exchanges a username and password for a token.
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, h.Env, err)
		return
	}

	var missing validation.Errors
	if strings.TrimSpace(input.Username) == "" {
		missing = append(missing, validation.FieldError{Field: "username", Message: "is required"})
	}
	if input.Password == "" {
		missing = append(missing, validation.FieldError{Field: "password", Message: "is required"})
	}
	if len(missing) > 0 {
		writeBadRequest(w, r, h.Env, missing)
		return
	}

	result, err := h.Users.Authenticate(r.Context(), input.Username, input.Password)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: presentUser(result.User, true), Token: result.Token})
}

// Me returns the caller's profile with activity counts.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	profile, err := h.Users.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, presentProfile(*profile, true))
}

// Get returns another user's public profile. Email is only shown to the
// user themselves.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	profile, err := h.Users.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	self := middleware.UserIDFromContext(r.Context()) == profile.User.ID
	writeJSON(w, http.StatusOK, presentProfile(*profile, self))
}

// MyRegistrations lists the caller's registrations, most recent first.
func (h *UsersHandler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	if h.Registrations == nil {
		problem.Respond(w, r, problem.ServerError, nil, h.Env)
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	items, err := h.Registrations.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(presentUserRegistrations(items)))
}

// MyRegistration returns one of the caller's registrations. Registrations of
// other users answer 404.
func (h *UsersHandler) MyRegistration(w http.ResponseWriter, r *http.Request) {
	if h.Registrations == nil {
		problem.Respond(w, r, problem.ServerError, nil, h.Env)
		return
	}
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	item, err := h.Registrations.GetForUser(r.Context(), middleware.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, presentUserRegistration(*item))
}
