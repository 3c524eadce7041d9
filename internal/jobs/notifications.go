package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/email"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// NotificationTimeout bounds a single delivery attempt.
const NotificationTimeout = 30 * time.Second

var (
	errMissingRecipient = errors.New("notification has no recipient email")
	errMailerMissing    = errors.New("mailer not configured")
)

// NotificationPayload is the job body shared by both registration kinds. It
// is a snapshot taken when the registration changed.
type NotificationPayload struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name,omitempty"`
	EventID       string    `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	EventLocation string    `json:"event_location"`
	EventDate     time.Time `json:"event_date"`
}

func (p NotificationPayload) recipientName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Username
}

func (p NotificationPayload) emailNotice() email.RegistrationNotice {
	return email.RegistrationNotice{
		To:            p.Email,
		Name:          p.recipientName(),
		EventID:       p.EventID,
		EventTitle:    p.EventTitle,
		EventLocation: p.EventLocation,
		EventDate:     p.EventDate,
	}
}

type RegistrationConfirmedArgs struct {
	NotificationPayload
}

func (RegistrationConfirmedArgs) Kind() string { return JobKindRegistrationConfirmed }

type RegistrationCancelledArgs struct {
	NotificationPayload
}

func (RegistrationCancelledArgs) Kind() string { return JobKindRegistrationCancelled }

// ArgsForNotice converts a domain notice into the matching job args.
func ArgsForNotice(notice registrations.Notice) (river.JobArgs, error) {
	payload := NotificationPayload{
		UserID:        notice.UserID,
		Username:      notice.Username,
		Email:         notice.Email,
		FirstName:     notice.FirstName,
		EventID:       notice.EventID,
		EventTitle:    notice.EventTitle,
		EventLocation: notice.EventLocation,
		EventDate:     notice.EventDate.UTC(),
	}
	switch notice.Kind {
	case registrations.NoticeRegistrationConfirmed:
		return RegistrationConfirmedArgs{NotificationPayload: payload}, nil
	case registrations.NoticeRegistrationCancelled:
		return RegistrationCancelledArgs{NotificationPayload: payload}, nil
	default:
		return nil, fmt.Errorf("unknown notice kind %q", notice.Kind)
	}
}

// TxInserter is the subset of *river.Client used to enqueue jobs.
type TxInserter interface {
	InsertTx(ctx context.Context, tx pgx.Tx, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// NoticeQueue enqueues registration notifications inside the caller's
// transaction. Jobs become visible to workers only after that transaction
// commits.
type NoticeQueue struct {
	inserter TxInserter
	policy   *RetryPolicy
}

func NewNoticeQueue(inserter TxInserter, policy *RetryPolicy) *NoticeQueue {
	if policy == nil {
		policy = NewRetryPolicy(0)
	}
	return &NoticeQueue{inserter: inserter, policy: policy}
}

func (q *NoticeQueue) InsertNotice(ctx context.Context, tx pgx.Tx, notice registrations.Notice) error {
	args, err := ArgsForNotice(notice)
	if err != nil {
		return err
	}
	opts := q.policy.InsertOpts(args.Kind())
	if _, err := q.inserter.InsertTx(ctx, tx, args, &opts); err != nil {
		return fmt.Errorf("insert %s job: %w", args.Kind(), err)
	}
	return nil
}

// Mailer delivers registration emails.
type Mailer interface {
	SendRegistrationConfirmed(ctx context.Context, notice email.RegistrationNotice) error
	SendRegistrationCancelled(ctx context.Context, notice email.RegistrationNotice) error
}

type RegistrationConfirmedWorker struct {
	river.WorkerDefaults[RegistrationConfirmedArgs]
	Mailer Mailer
}

func (RegistrationConfirmedWorker) Kind() string { return JobKindRegistrationConfirmed }

func (RegistrationConfirmedWorker) Timeout(*river.Job[RegistrationConfirmedArgs]) time.Duration {
	return NotificationTimeout
}

func (w RegistrationConfirmedWorker) Work(ctx context.Context, job *river.Job[RegistrationConfirmedArgs]) error {
	if job == nil {
		return fmt.Errorf("registration confirmed job missing")
	}
	if w.Mailer == nil {
		return errMailerMissing
	}
	return deliver(ctx, job.Args.NotificationPayload, w.Mailer.SendRegistrationConfirmed)
}

type RegistrationCancelledWorker struct {
	river.WorkerDefaults[RegistrationCancelledArgs]
	Mailer Mailer
}

func (RegistrationCancelledWorker) Kind() string { return JobKindRegistrationCancelled }

func (RegistrationCancelledWorker) Timeout(*river.Job[RegistrationCancelledArgs]) time.Duration {
	return NotificationTimeout
}

func (w RegistrationCancelledWorker) Work(ctx context.Context, job *river.Job[RegistrationCancelledArgs]) error {
	if job == nil {
		return fmt.Errorf("registration cancelled job missing")
	}
	if w.Mailer == nil {
		return errMailerMissing
	}
	return deliver(ctx, job.Args.NotificationPayload, w.Mailer.SendRegistrationCancelled)
}

// deliver sends one notification. Problems that retrying cannot fix cancel
// the job instead of burning attempts.
func deliver(ctx context.Context, payload NotificationPayload, send func(context.Context, email.RegistrationNotice) error) error {
	if payload.Email == "" {
		return river.JobCancel(fmt.Errorf("%w: user %s", errMissingRecipient, payload.UserID))
	}
	if err := send(ctx, payload.emailNotice()); err != nil {
		if errors.Is(err, email.ErrInvalidRecipient) {
			return river.JobCancel(err)
		}
		return err
	}
	return nil
}

// NewWorkers registers the notification workers.
func NewWorkers(mailer Mailer) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[RegistrationConfirmedArgs](workers, RegistrationConfirmedWorker{Mailer: mailer})
	river.AddWorker[RegistrationCancelledArgs](workers, RegistrationCancelledWorker{Mailer: mailer})
	return workers
}
