package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/domain/ids"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserParams(t *testing.T, username, email string) users.CreateUserParams {
	t.Helper()
	id, err := ids.NewULID()
	require.NoError(t, err)
	return users.CreateUserParams{
		ID:           id,
		Username:     username,
		Email:        email,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "$2a$12$hash",
		Role:         users.RoleUser,
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	created, err := repo.Users().CreateUser(ctx, newUserParams(t, "ada", "ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ada", created.Username)
	assert.Equal(t, users.RoleUser, created.Role)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.Users().GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, "Lovelace", byID.LastName)

	byName, err := repo.Users().GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.Users().GetUserByEmail(ctx, "ADA@Example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	_, err = repo.Users().GetUserByID(ctx, "01HZY3M3K5Q7V9X2B4D6F8H0JA")
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	_, err = repo.Users().GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	_, err = repo.Users().CreateUser(ctx, newUserParams(t, "ada", "ada@example.com"))
	require.NoError(t, err)

	_, err = repo.Users().CreateUser(ctx, newUserParams(t, "ada", "other@example.com"))
	assert.ErrorIs(t, err, users.ErrUsernameTaken)

	_, err = repo.Users().CreateUser(ctx, newUserParams(t, "grace", "ada@example.com"))
	assert.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestUserRepository_CountUserActivity(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	attendee := insertUser(t, ctx, pool, "attendee")
	future := time.Now().Add(48 * time.Hour)

	first := insertEvent(t, ctx, pool, organizer, "First", future, nil)
	second := insertEvent(t, ctx, pool, organizer, "Second", future, nil)
	insertRegistration(t, ctx, pool, attendee, first, "confirmed", time.Now())
	insertRegistration(t, ctx, pool, attendee, second, "waitlist", time.Now())

	organized, registered, err := repo.Users().CountUserActivity(ctx, organizer)
	require.NoError(t, err)
	assert.Equal(t, 2, organized)
	assert.Equal(t, 0, registered)

	organized, registered, err = repo.Users().CountUserActivity(ctx, attendee)
	require.NoError(t, err)
	assert.Equal(t, 0, organized)
	assert.Equal(t, 1, registered, "only confirmed registrations count")
}
