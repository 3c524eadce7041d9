package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventreg/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, email, first_name, last_name, password_hash, role, created_at, updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, params users.CreateUserParams) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (id, username, email, first_name, last_name, password_hash, role)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+userColumns,
		params.ID,
		params.Username,
		params.Email,
		params.FirstName,
		params.LastName,
		params.PasswordHash,
		params.Role,
	)
	user, err := scanUser(row)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_username_unique"):
			return nil, users.ErrUsernameTaken
		case isUniqueViolation(err, "users_email_unique"):
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// CountUserActivity returns how many events the user organizes and for how
// many they hold a confirmed registration.
func (r *UserRepository) CountUserActivity(ctx context.Context, id string) (int, int, error) {
	var organized, registered int64
	err := r.queryer().QueryRow(ctx, `
SELECT (SELECT count(*) FROM events WHERE organizer_id = $1),
       (SELECT count(*) FROM registrations WHERE user_id = $1 AND status = 'confirmed')
`, id).Scan(&organized, &registered)
	if err != nil {
		return 0, 0, fmt.Errorf("count user activity: %w", err)
	}
	return int(organized), int(registered), nil
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg string) (*users.User, error) {
	user, err := scanUser(r.queryer().QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) queryer() queryer {
	return r.pool
}
