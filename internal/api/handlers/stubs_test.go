package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/api/middleware"
	"github.com/Togather-Foundation/eventreg/internal/auth"
	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var errNotStubbed = errors.New("not stubbed")

const (
	aliceID = "01HZY3M3K5Q7V9X2B4D6F8H0JA"
	bobID   = "01HZY3M3K5Q7V9X2B4D6F8H0JB"
	eventID = "01HZY3M3K5Q7V9X2B4D6F8H0JC"
)

type stubUsers struct {
	signupFn  func(users.SignupInput) (*users.AuthResult, error)
	authFn    func(username, password string) (*users.AuthResult, error)
	profileFn func(id string) (*users.Profile, error)
}

func (s stubUsers) Signup(_ context.Context, input users.SignupInput) (*users.AuthResult, error) {
	if s.signupFn == nil {
		return nil, errNotStubbed
	}
	return s.signupFn(input)
}

func (s stubUsers) Authenticate(_ context.Context, username, password string) (*users.AuthResult, error) {
	if s.authFn == nil {
		return nil, errNotStubbed
	}
	return s.authFn(username, password)
}

func (s stubUsers) GetProfile(_ context.Context, id string) (*users.Profile, error) {
	if s.profileFn == nil {
		return nil, errNotStubbed
	}
	return s.profileFn(id)
}

type stubEvents struct {
	createFn func(organizerID string, draft events.Draft) (*events.Event, error)
	getFn    func(id string) (*events.Event, error)
	listFn   func(limit int) ([]events.Event, error)
	updateFn func(actingUserID, eventID string, patch events.Patch) (*events.Event, error)
	deleteFn func(actingUserID, eventID string) error
}

func (s stubEvents) Create(_ context.Context, organizerID string, draft events.Draft) (*events.Event, error) {
	if s.createFn == nil {
		return nil, errNotStubbed
	}
	return s.createFn(organizerID, draft)
}

func (s stubEvents) Get(_ context.Context, id string) (*events.Event, error) {
	if s.getFn == nil {
		return nil, errNotStubbed
	}
	return s.getFn(id)
}

func (s stubEvents) List(_ context.Context, limit int) ([]events.Event, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(limit)
}

func (s stubEvents) Update(_ context.Context, actingUserID, eventID string, patch events.Patch) (*events.Event, error) {
	if s.updateFn == nil {
		return nil, errNotStubbed
	}
	return s.updateFn(actingUserID, eventID, patch)
}

func (s stubEvents) Delete(_ context.Context, actingUserID, eventID string) error {
	if s.deleteFn == nil {
		return errNotStubbed
	}
	return s.deleteFn(actingUserID, eventID)
}

type stubRegistrations struct {
	registerFn     func(userID, eventID string) (*registrations.Registration, error)
	unregisterFn   func(userID, eventID string) error
	isRegisteredFn func(userID, eventID string) (bool, error)
	capacityFn     func(eventID, userID string) (*registrations.Capacity, error)
	attendeesFn    func(eventID string) ([]registrations.Attendee, error)
	forUserFn      func(userID string) ([]registrations.UserRegistration, error)
	getForUserFn   func(userID, registrationID string) (*registrations.UserRegistration, error)
}

func (s stubRegistrations) Register(_ context.Context, userID, eventID string) (*registrations.Registration, error) {
	if s.registerFn == nil {
		return nil, errNotStubbed
	}
	return s.registerFn(userID, eventID)
}

func (s stubRegistrations) Unregister(_ context.Context, userID, eventID string) error {
	if s.unregisterFn == nil {
		return errNotStubbed
	}
	return s.unregisterFn(userID, eventID)
}

func (s stubRegistrations) IsRegistered(_ context.Context, userID, eventID string) (bool, error) {
	if s.isRegisteredFn == nil {
		return false, nil
	}
	return s.isRegisteredFn(userID, eventID)
}

func (s stubRegistrations) Capacity(_ context.Context, eventID, userID string) (*registrations.Capacity, error) {
	if s.capacityFn == nil {
		return nil, errNotStubbed
	}
	return s.capacityFn(eventID, userID)
}

func (s stubRegistrations) ListAttendees(_ context.Context, eventID string) ([]registrations.Attendee, error) {
	if s.attendeesFn == nil {
		return nil, nil
	}
	return s.attendeesFn(eventID)
}

func (s stubRegistrations) ListForUser(_ context.Context, userID string) ([]registrations.UserRegistration, error) {
	if s.forUserFn == nil {
		return nil, errNotStubbed
	}
	return s.forUserFn(userID)
}

func (s stubRegistrations) GetForUser(_ context.Context, userID, registrationID string) (*registrations.UserRegistration, error) {
	if s.getForUserFn == nil {
		return nil, errNotStubbed
	}
	return s.getForUserFn(userID, registrationID)
}

// serve sends a request routed through a ServeMux so PathValue works,
// optionally acting as userID.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req = req.WithContext(middleware.ContextWithClaims(req.Context(), &auth.Claims{
			Role:             "user",
			RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		}))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type problemBody struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Detail string         `json:"detail"`
	Errors map[string]any `json:"errors"`
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problemBody {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body problemBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleEvent() *events.Event {
	capacity := 2
	return &events.Event{
		ID:          eventID,
		Title:       "Go Meetup",
		Description: "Talks and pizza",
		Date:        time.Date(2030, 7, 4, 19, 30, 0, 0, time.UTC),
		Location:    "Community Hall",
		OrganizerID: aliceID,
		Organizer: events.Organizer{
			ID:        aliceID,
			Username:  "alice",
			FirstName: "Alice",
		},
		MaxAttendees:   &capacity,
		AttendeesCount: 1,
		CreatedAt:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
