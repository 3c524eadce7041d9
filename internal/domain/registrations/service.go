// Package registrations enforces who may attend an event: one registration
// per user and event, never the organizer, never beyond capacity and never
// for an event that already happened.
package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventreg/internal/audit"
	"github.com/Togather-Foundation/eventreg/internal/clock"
	"github.com/Togather-Foundation/eventreg/internal/domain/ids"
	"github.com/Togather-Foundation/eventreg/internal/metrics"
	"github.com/Togather-Foundation/eventreg/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Service struct {
	repo   Repository
	clock  clock.Clock
	audit  *audit.Logger
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewService(repo Repository, clk clock.Clock, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	return &Service{
		repo:   repo,
		clock:  clk,
		audit:  auditLogger,
		logger: logger.With().Str("component", "registrations").Logger(),
		tracer: telemetry.Tracer("eventreg/registrations"),
	}
}

// Register creates a confirmed registration for userID on eventID.
//
// The event row is locked for the duration of the transaction, so concurrent
// registrations for the same event are serialized and the capacity check
// always sees every committed seat.
func (s *Service) Register(ctx context.Context, userID, eventID string) (_ *Registration, err error) {
	eventID = ids.Normalize(eventID)
	ctx, span := s.tracer.Start(ctx, "registrations.Register", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("event.id", eventID),
	))
	defer func() {
		recordOutcome("register", err)
		telemetry.EndSpan(span, err)
	}()

	txRepo, txCommitter, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = txCommitter.Rollback(ctx)
	}()

	event, err := txRepo.LockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event.OrganizerID == userID {
		return nil, ErrOwnerSelfRegistration
	}

	if _, err := txRepo.GetRegistration(ctx, userID, eventID); err == nil {
		return nil, ErrDuplicateRegistration
	} else if !errors.Is(err, ErrNotRegistered) {
		return nil, fmt.Errorf("check registration: %w", err)
	}

	confirmed, err := txRepo.CountConfirmed(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count attendees: %w", err)
	}
	if IsFull(event.MaxAttendees, confirmed) {
		return nil, ErrCapacityExceeded
	}

	now := s.clock.Now()
	if event.Date.Before(now) {
		return nil, ErrEventInPast
	}

	participant, err := txRepo.GetParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate registration id: %w", err)
	}

	registration, err := txRepo.CreateRegistration(ctx, CreateRegistrationParams{
		ID:           id,
		UserID:       userID,
		EventID:      eventID,
		Status:       StatusConfirmed,
		RegisteredAt: now,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			return nil, ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.enqueue(ctx, txRepo, newNotice(NoticeRegistrationConfirmed, *participant, *event))

	if err := txCommitter.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.audit.LogSuccess("registration.create", userID, "event", eventID, map[string]string{
		"registration_id": registration.ID,
	})
	s.logger.Info().
		Str("registration_id", registration.ID).
		Str("user_id", userID).
		Str("event_id", eventID).
		Int("attendees", confirmed+1).
		Msg("registration confirmed")

	return registration, nil
}

// Unregister deletes userID's registration for eventID.
func (s *Service) Unregister(ctx context.Context, userID, eventID string) (err error) {
	eventID = ids.Normalize(eventID)
	ctx, span := s.tracer.Start(ctx, "registrations.Unregister", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("event.id", eventID),
	))
	defer func() {
		recordOutcome("unregister", err)
		telemetry.EndSpan(span, err)
	}()

	txRepo, txCommitter, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = txCommitter.Rollback(ctx)
	}()

	event, err := txRepo.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}

	registration, err := txRepo.GetRegistration(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			return ErrNotRegistered
		}
		return fmt.Errorf("get registration: %w", err)
	}

	participant, err := txRepo.GetParticipant(ctx, userID)
	if err != nil {
		return err
	}

	if err := txRepo.DeleteRegistration(ctx, registration.ID); err != nil {
		if errors.Is(err, ErrNotRegistered) {
			return ErrNotRegistered
		}
		return fmt.Errorf("delete registration: %w", err)
	}

	s.enqueue(ctx, txRepo, newNotice(NoticeRegistrationCancelled, *participant, *event))

	if err := txCommitter.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.audit.LogSuccess("registration.delete", userID, "event", eventID, map[string]string{
		"registration_id": registration.ID,
	})
	s.logger.Info().
		Str("registration_id", registration.ID).
		Str("user_id", userID).
		Str("event_id", eventID).
		Msg("registration removed")
	return nil
}

// enqueue hands a notice to the queue. Failures are logged and never change
// the outcome of the registration.
func (s *Service) enqueue(ctx context.Context, txRepo Repository, notice Notice) {
	if err := txRepo.EnqueueNotice(ctx, notice); err != nil {
		metrics.NotificationsEnqueued.WithLabelValues(string(notice.Kind), "error").Inc()
		s.logger.Warn().
			Err(err).
			Str("kind", string(notice.Kind)).
			Str("user_id", notice.UserID).
			Str("event_id", notice.EventID).
			Msg("failed to enqueue notification")
		return
	}
	metrics.NotificationsEnqueued.WithLabelValues(string(notice.Kind), "success").Inc()
}

// IsRegistered reports whether userID holds a registration for eventID.
func (s *Service) IsRegistered(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	_, err := s.repo.GetRegistration(ctx, userID, ids.Normalize(eventID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotRegistered) {
		return false, nil
	}
	return false, fmt.Errorf("get registration: %w", err)
}

// AttendeesCount returns the live number of confirmed registrations.
func (s *Service) AttendeesCount(ctx context.Context, eventID string) (int, error) {
	eventID = ids.Normalize(eventID)
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountConfirmed(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return count, nil
}

// IsFull evaluates capacity against the live confirmed count.
func (s *Service) IsFull(ctx context.Context, eventID string) (bool, error) {
	capacity, err := s.Capacity(ctx, eventID, "")
	if err != nil {
		return false, err
	}
	return capacity.IsFull, nil
}

// Capacity returns seats information for eventID. IsRegistered is filled in
// when userID is not empty.
func (s *Service) Capacity(ctx context.Context, eventID, userID string) (*Capacity, error) {
	eventID = ids.Normalize(eventID)
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountConfirmed(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count attendees: %w", err)
	}
	registered, err := s.IsRegistered(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	return &Capacity{
		EventID:        event.ID,
		MaxAttendees:   event.MaxAttendees,
		AttendeesCount: count,
		IsFull:         IsFull(event.MaxAttendees, count),
		IsRegistered:   registered,
	}, nil
}

// ListAttendees returns the confirmed attendees of eventID, earliest first.
func (s *Service) ListAttendees(ctx context.Context, eventID string) ([]Attendee, error) {
	eventID = ids.Normalize(eventID)
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	attendees, err := s.repo.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}

// ListForUser returns the user's registrations, most recent first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]UserRegistration, error) {
	items, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return items, nil
}

// GetForUser returns one of the user's registrations with its event.
func (s *Service) GetForUser(ctx context.Context, userID, registrationID string) (*UserRegistration, error) {
	item, err := s.repo.GetForUser(ctx, userID, ids.Normalize(registrationID))
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return item, nil
}

func recordOutcome(operation string, err error) {
	metrics.RegistrationOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// Outcome maps an error from Register or Unregister to a short label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrOwnerSelfRegistration):
		return "owner_self_registration"
	case errors.Is(err, ErrDuplicateRegistration):
		return "duplicate"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrEventInPast):
		return "event_in_past"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	default:
		return "error"
	}
}
