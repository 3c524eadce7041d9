package users

import "context"

// Repository abstracts user persistence. Implementations return
// ErrUserNotFound for missing rows and ErrUsernameTaken / ErrEmailTaken when a
// uniqueness constraint rejects an insert.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountUserActivity(ctx context.Context, id string) (organized int, registered int, err error)
}

type CreateUserParams struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
}
