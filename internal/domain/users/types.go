package users

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account that can organize events and register for them.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is a user with their activity counts.
type Profile struct {
	User                  User
	OrganizedEventsCount  int
	RegisteredEventsCount int
}

// SignupInput is the self-service account creation request.
type SignupInput struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

// AuthResult is returned by Signup and Authenticate.
type AuthResult struct {
	User  User
	Token string
}
