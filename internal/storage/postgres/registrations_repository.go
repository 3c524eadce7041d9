package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ registrations.Repository = (*RegistrationRepository)(nil)

// ErrNoNoticeQueue is returned by EnqueueNotice when no queue is configured.
var ErrNoNoticeQueue = errors.New("notification queue not configured")

// NoticeQueue inserts notification jobs using the caller's transaction, so
// they become visible to workers only after that transaction commits.
type NoticeQueue interface {
	InsertNotice(ctx context.Context, tx pgx.Tx, notice registrations.Notice) error
}

type RegistrationRepository struct {
	pool  *pgxpool.Pool
	tx    pgx.Tx
	queue NoticeQueue
}

// BeginTx starts a new transaction and returns a transaction-scoped repository
func (r *RegistrationRepository) BeginTx(ctx context.Context) (registrations.Repository, registrations.TxCommitter, error) {
	if r.tx != nil {
		return nil, nil, fmt.Errorf("repository already in transaction")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &RegistrationRepository{
		pool:  r.pool,
		tx:    tx,
		queue: r.queue,
	}
	return txRepo, &txCommitter{tx: tx}, nil
}

const eventSnapshotSQL = `
SELECT id, title, location, date, organizer_id, max_attendees
  FROM events
 WHERE id = $1
`

// LockEvent takes a row lock on the event. Concurrent registrations for the
// same event queue up here until the holder commits or rolls back.
func (r *RegistrationRepository) LockEvent(ctx context.Context, eventID string) (_ *registrations.EventSnapshot, err error) {
	if r.tx == nil {
		return nil, fmt.Errorf("lock event: requires a transaction")
	}
	start := time.Now()
	defer func() { metrics.RecordQuery("lock_event", start, err) }()

	return r.getEventSnapshot(ctx, eventSnapshotSQL+` FOR UPDATE`, eventID)
}

func (r *RegistrationRepository) GetEvent(ctx context.Context, eventID string) (*registrations.EventSnapshot, error) {
	return r.getEventSnapshot(ctx, eventSnapshotSQL, eventID)
}

func (r *RegistrationRepository) getEventSnapshot(ctx context.Context, query, eventID string) (*registrations.EventSnapshot, error) {
	var (
		event        registrations.EventSnapshot
		maxAttendees pgtype.Int4
	)
	err := r.queryer().QueryRow(ctx, query, eventID).Scan(
		&event.ID,
		&event.Title,
		&event.Location,
		&event.Date,
		&event.OrganizerID,
		&maxAttendees,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registrations.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	event.Date = event.Date.UTC()
	event.MaxAttendees = intFromPg(maxAttendees)
	return &event, nil
}

func (r *RegistrationRepository) GetParticipant(ctx context.Context, userID string) (*registrations.Participant, error) {
	var p registrations.Participant
	err := r.queryer().QueryRow(ctx, `
SELECT id, username, email, first_name
  FROM users
 WHERE id = $1
`, userID).Scan(&p.ID, &p.Username, &p.Email, &p.FirstName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registrations.ErrUserNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

const registrationColumns = `id, user_id, event_id, status, registered_at, updated_at`

func (r *RegistrationRepository) GetRegistration(ctx context.Context, userID, eventID string) (*registrations.Registration, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+registrationColumns+`
  FROM registrations
 WHERE user_id = $1 AND event_id = $2
`, userID, eventID)
	registration, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registrations.ErrNotRegistered
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return registration, nil
}

func (r *RegistrationRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var count int64
	err := r.queryer().QueryRow(ctx, `
SELECT count(*)
  FROM registrations
 WHERE event_id = $1 AND status = 'confirmed'
`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	return int(count), nil
}

func (r *RegistrationRepository) CreateRegistration(ctx context.Context, params registrations.CreateRegistrationParams) (_ *registrations.Registration, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("insert_registration", start, err) }()

	row := r.queryer().QueryRow(ctx, `
INSERT INTO registrations (id, user_id, event_id, status, registered_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING `+registrationColumns,
		params.ID,
		params.UserID,
		params.EventID,
		string(params.Status),
		params.RegisteredAt,
	)
	registration, err := scanRegistration(row)
	if err != nil {
		switch {
		case isUniqueViolation(err, "registrations_user_event_unique"):
			return nil, registrations.ErrDuplicateRegistration
		case isForeignKeyViolation(err, "registrations_event_id_fkey"):
			return nil, registrations.ErrEventNotFound
		case isForeignKeyViolation(err, "registrations_user_id_fkey"):
			return nil, registrations.ErrUserNotFound
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return registration, nil
}

func (r *RegistrationRepository) DeleteRegistration(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registrations.ErrNotRegistered
	}
	return nil
}

func (r *RegistrationRepository) ListAttendees(ctx context.Context, eventID string) ([]registrations.Attendee, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT r.id, u.id, u.username, u.first_name, u.last_name, r.registered_at
  FROM registrations r
  JOIN users u ON u.id = r.user_id
 WHERE r.event_id = $1 AND r.status = 'confirmed'
 ORDER BY r.registered_at ASC, r.id ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	attendees := make([]registrations.Attendee, 0)
	for rows.Next() {
		var a registrations.Attendee
		if err := rows.Scan(&a.RegistrationID, &a.UserID, &a.Username, &a.FirstName, &a.LastName, &a.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees rows: %w", err)
	}
	return attendees, nil
}

const selectUserRegistrationSQL = `
SELECT r.id, r.user_id, r.event_id, r.status, r.registered_at, r.updated_at,
       e.title, e.location, e.date, e.organizer_id, e.max_attendees
  FROM registrations r
  JOIN events e ON e.id = r.event_id
`

func (r *RegistrationRepository) ListForUser(ctx context.Context, userID string) ([]registrations.UserRegistration, error) {
	rows, err := r.queryer().Query(ctx, selectUserRegistrationSQL+`
 WHERE r.user_id = $1
 ORDER BY r.registered_at DESC, r.id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	defer rows.Close()

	items := make([]registrations.UserRegistration, 0)
	for rows.Next() {
		item, err := scanUserRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user registration: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user registrations rows: %w", err)
	}
	return items, nil
}

func (r *RegistrationRepository) GetForUser(ctx context.Context, userID, registrationID string) (*registrations.UserRegistration, error) {
	row := r.queryer().QueryRow(ctx, selectUserRegistrationSQL+`
 WHERE r.id = $1 AND r.user_id = $2
`, registrationID, userID)
	item, err := scanUserRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registrations.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get user registration: %w", err)
	}
	return item, nil
}

func scanUserRegistration(row pgx.Row) (*registrations.UserRegistration, error) {
	var (
		item         registrations.UserRegistration
		status       string
		maxAttendees pgtype.Int4
	)
	if err := row.Scan(
		&item.Registration.ID,
		&item.Registration.UserID,
		&item.Registration.EventID,
		&status,
		&item.Registration.RegisteredAt,
		&item.Registration.UpdatedAt,
		&item.Event.Title,
		&item.Event.Location,
		&item.Event.Date,
		&item.Event.OrganizerID,
		&maxAttendees,
	); err != nil {
		return nil, err
	}
	item.Registration.Status = registrations.Status(status)
	item.Event.ID = item.Registration.EventID
	item.Event.Date = item.Event.Date.UTC()
	item.Event.MaxAttendees = intFromPg(maxAttendees)
	return &item, nil
}

// EnqueueNotice inserts the notice under a savepoint. If the insert fails the
// savepoint is rolled back, which leaves the outer transaction usable.
func (r *RegistrationRepository) EnqueueNotice(ctx context.Context, notice registrations.Notice) error {
	if r.queue == nil {
		return ErrNoNoticeQueue
	}
	if r.tx == nil {
		return fmt.Errorf("enqueue notice: requires a transaction")
	}

	savepoint, err := r.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("enqueue notice: savepoint: %w", err)
	}
	if err := r.queue.InsertNotice(ctx, savepoint, notice); err != nil {
		_ = savepoint.Rollback(ctx)
		return fmt.Errorf("enqueue %s: %w", notice.Kind, err)
	}
	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("enqueue notice: release savepoint: %w", err)
	}
	return nil
}

func scanRegistration(row pgx.Row) (*registrations.Registration, error) {
	var (
		reg    registrations.Registration
		status string
	)
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &reg.RegisteredAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	reg.Status = registrations.Status(status)
	return &reg, nil
}

func (r *RegistrationRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
