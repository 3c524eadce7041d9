// Package events owns the event lifecycle: creation by an organizer, partial
// updates and deletion, all restricted to the event's organizer.
package events

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
		logger: logger.With().Str("component", "events").Logger(),
		tracer: telemetry.Tracer("eventreg/events"),
	}
}

// Create validates the draft and stores it with organizerID as the organizer.
func (s *Service) Create(ctx context.Context, organizerID string, draft Draft) (_ *Event, err error) {
	ctx, span := s.tracer.Start(ctx, "events.Create", trace.WithAttributes(attribute.String("user.id", organizerID)))
	defer func() {
		recordOutcome("create", err)
		telemetry.EndSpan(span, err)
	}()

	draft, err = ValidateDraft(draft, s.clock.Now())
	if err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	event, err := s.repo.CreateEvent(ctx, CreateEventParams{
		ID:           id,
		Title:        draft.Title,
		Description:  draft.Description,
		Date:         draft.Date,
		Location:     draft.Location,
		OrganizerID:  organizerID,
		MaxAttendees: draft.MaxAttendees,
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.audit.LogSuccess("event.create", organizerID, "event", event.ID, map[string]string{"title": event.Title})
	s.logger.Info().Str("event_id", event.ID).Str("organizer_id", organizerID).Msg("event created")
	return event, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	event, err := s.repo.GetEvent(ctx, ids.Normalize(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// List returns events ordered by date, newest first. limit is clamped to
// (0, MaxListSize].
func (s *Service) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > MaxListSize {
		limit = MaxListSize
	}
	events, err := s.repo.ListEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Update applies patch to the event. Only the organizer may update it, and
// only the fields present in the patch are re-validated. Lowering
// max_attendees below the current attendee count is allowed; existing
// registrations are kept and new ones are refused until seats free up.
func (s *Service) Update(ctx context.Context, actingUserID, eventID string, patch Patch) (_ *Event, err error) {
	ctx, span := s.tracer.Start(ctx, "events.Update", trace.WithAttributes(
		attribute.String("user.id", actingUserID),
		attribute.String("event.id", eventID),
	))
	defer func() {
		recordOutcome("update", err)
		telemetry.EndSpan(span, err)
	}()

	current, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if current.OrganizerID != actingUserID {
		s.audit.LogFailure("event.update", actingUserID, "event", current.ID, "permission denied")
		return nil, ErrPermissionDenied
	}

	patch, err = ValidatePatch(patch, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	next := patch.Apply(*current)
	updated, err := s.repo.UpdateEvent(ctx, current.ID, UpdateEventParams{
		Title:        next.Title,
		Description:  next.Description,
		Date:         next.Date,
		Location:     next.Location,
		MaxAttendees: next.MaxAttendees,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.audit.LogSuccess("event.update", actingUserID, "event", updated.ID, nil)
	return updated, nil
}

// Delete removes the event and, through the foreign key, its registrations.
func (s *Service) Delete(ctx context.Context, actingUserID, eventID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "events.Delete", trace.WithAttributes(
		attribute.String("user.id", actingUserID),
		attribute.String("event.id", eventID),
	))
	defer func() {
		recordOutcome("delete", err)
		telemetry.EndSpan(span, err)
	}()

	current, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if current.OrganizerID != actingUserID {
		s.audit.LogFailure("event.delete", actingUserID, "event", current.ID, "permission denied")
		return ErrPermissionDenied
	}

	if err := s.repo.DeleteEvent(ctx, current.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}

	s.audit.LogSuccess("event.delete", actingUserID, "event", current.ID, map[string]string{"title": current.Title})
	s.logger.Info().Str("event_id", current.ID).Msg("event deleted")
	return nil
}

func recordOutcome(operation string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrPermissionDenied):
		outcome = "permission_denied"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrPastDate), errors.Is(err, ErrInvalidCapacity):
		outcome = "invalid"
	default:
		var verr ValidationError
		if errors.As(err, &verr) {
			outcome = "invalid"
		} else {
			outcome = "error"
		}
	}
	metrics.EventOperations.WithLabelValues(operation, outcome).Inc()
}
