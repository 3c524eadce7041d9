package registrations

import (
	"context"
	"time"
)

// Repository abstracts registration persistence.
//
// Reads of a missing event return ErrEventNotFound, a missing registration
// ErrNotRegistered, and a missing user ErrUserNotFound. CreateRegistration
// returns ErrDuplicateRegistration when the (user, event) pair already exists.
type Repository interface {
	// BeginTx starts a transaction and returns a repository bound to it.
	BeginTx(ctx context.Context) (Repository, TxCommitter, error)

	// LockEvent reads the event and holds a row lock on it until the
	// surrounding transaction ends.
	LockEvent(ctx context.Context, eventID string) (*EventSnapshot, error)
	GetEvent(ctx context.Context, eventID string) (*EventSnapshot, error)
	GetParticipant(ctx context.Context, userID string) (*Participant, error)

	GetRegistration(ctx context.Context, userID, eventID string) (*Registration, error)
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	CreateRegistration(ctx context.Context, params CreateRegistrationParams) (*Registration, error)
	DeleteRegistration(ctx context.Context, id string) error

	ListAttendees(ctx context.Context, eventID string) ([]Attendee, error)
	ListForUser(ctx context.Context, userID string) ([]UserRegistration, error)
	// GetForUser returns ErrRegistrationNotFound unless registrationID
	// belongs to userID.
	GetForUser(ctx context.Context, userID, registrationID string) (*UserRegistration, error)

	// EnqueueNotice schedules a notification that becomes visible only when
	// the surrounding transaction commits. A failure must leave the
	// transaction usable.
	EnqueueNotice(ctx context.Context, notice Notice) error
}

// TxCommitter commits or rolls back the transaction behind a repository
// returned by BeginTx. Rollback after Commit is a no-op.
type TxCommitter interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type CreateRegistrationParams struct {
	ID           string
	UserID       string
	EventID      string
	Status       Status
	RegisteredAt time.Time
}
