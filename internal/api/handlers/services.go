package handlers

import (
	"context"

	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
)

// UserService is implemented by *users.Service.
type UserService interface {
	Signup(ctx context.Context, input users.SignupInput) (*users.AuthResult, error)
	Authenticate(ctx context.Context, username, password string) (*users.AuthResult, error)
	GetProfile(ctx context.Context, id string) (*users.Profile, error)
}

// EventService is implemented by *events.Service.
type EventService interface {
	Create(ctx context.Context, organizerID string, draft events.Draft) (*events.Event, error)
	Get(ctx context.Context, id string) (*events.Event, error)
	List(ctx context.Context, limit int) ([]events.Event, error)
	Update(ctx context.Context, actingUserID, eventID string, patch events.Patch) (*events.Event, error)
	Delete(ctx context.Context, actingUserID, eventID string) error
}

// RegistrationService is implemented by *registrations.Service.
type RegistrationService interface {
	Register(ctx context.Context, userID, eventID string) (*registrations.Registration, error)
	Unregister(ctx context.Context, userID, eventID string) error
	IsRegistered(ctx context.Context, userID, eventID string) (bool, error)
	Capacity(ctx context.Context, eventID, userID string) (*registrations.Capacity, error)
	ListAttendees(ctx context.Context, eventID string) ([]registrations.Attendee, error)
	ListForUser(ctx context.Context, userID string) ([]registrations.UserRegistration, error)
	GetForUser(ctx context.Context, userID, registrationID string) (*registrations.UserRegistration, error)
}

var (
	_ UserService         = (*users.Service)(nil)
	_ EventService        = (*events.Service)(nil)
	_ RegistrationService = (*registrations.Service)(nil)
)
