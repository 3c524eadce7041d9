package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	createEventFn func(ctx context.Context, params CreateEventParams) (*Event, error)
	getEventFn    func(ctx context.Context, id string) (*Event, error)
	listEventsFn  func(ctx context.Context, limit int) ([]Event, error)
	updateEventFn func(ctx context.Context, id string, params UpdateEventParams) (*Event, error)
	deleteEventFn func(ctx context.Context, id string) error
}

func (m *mockRepository) CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error) {
	if m.createEventFn != nil {
		return m.createEventFn(ctx, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) GetEvent(ctx context.Context, id string) (*Event, error) {
	if m.getEventFn != nil {
		return m.getEventFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *mockRepository) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepository) UpdateEvent(ctx context.Context, id string, params UpdateEventParams) (*Event, error) {
	if m.updateEventFn != nil {
		return m.updateEventFn(ctx, id, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) DeleteEvent(ctx context.Context, id string) error {
	if m.deleteEventFn != nil {
		return m.deleteEventFn(ctx, id)
	}
	return errors.New("not implemented")
}

const (
	organizerID = "01HYX3KQW7ERTV9XNBM2P8QJZA"
	strangerID  = "01HYX3KQW7ERTV9XNBM2P8QJZB"
	eventID     = "01HYX3KQW7ERTV9XNBM2P8QJZE"
)

func newTestService(repo Repository) *Service {
	return NewService(repo, clock.Fixed(now), nil, zerolog.Nop())
}

func storedEvent() *Event {
	return &Event{
		ID:           eventID,
		Title:        "Go Meetup",
		Description:  "Talks",
		Date:         now.Add(24 * time.Hour),
		Location:     "Hall",
		OrganizerID:  organizerID,
		MaxAttendees: intPtr(10),
	}
}

func TestCreate_UsesActingUserAsOrganizer(t *testing.T) {
	var got CreateEventParams
	repo := &mockRepository{
		createEventFn: func(ctx context.Context, params CreateEventParams) (*Event, error) {
			got = params
			return &Event{ID: params.ID, Title: params.Title, OrganizerID: params.OrganizerID}, nil
		},
	}
	svc := newTestService(repo)

	event, err := svc.Create(context.Background(), organizerID, validDraft())
	require.NoError(t, err)
	assert.Equal(t, organizerID, got.OrganizerID)
	assert.Equal(t, organizerID, event.OrganizerID)
	assert.Len(t, got.ID, 26)
	assert.Equal(t, 3, *got.MaxAttendees)
}

func TestCreate_RejectsPastDateWithoutWriting(t *testing.T) {
	called := false
	repo := &mockRepository{
		createEventFn: func(ctx context.Context, params CreateEventParams) (*Event, error) {
			called = true
			return nil, nil
		},
	}
	svc := newTestService(repo)
	d := validDraft()
	d.Date = now.Add(-24 * time.Hour)

	_, err := svc.Create(context.Background(), organizerID, d)
	assert.ErrorIs(t, err, ErrPastDate)
	assert.False(t, called)
}

func TestCreate_RejectsInvalidCapacity(t *testing.T) {
	svc := newTestService(&mockRepository{})
	d := validDraft()
	d.MaxAttendees = intPtr(0)

	_, err := svc.Create(context.Background(), organizerID, d)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(&mockRepository{})

	_, err := svc.Get(context.Background(), eventID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_NormalizesID(t *testing.T) {
	var asked string
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) {
			asked = id
			return storedEvent(), nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Get(context.Background(), " 01hyx3kqw7ertv9xnbm2p8qjze ")
	require.NoError(t, err)
	assert.Equal(t, eventID, asked)
}

func TestList_ClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &mockRepository{
		listEventsFn: func(ctx context.Context, limit int) ([]Event, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	svc := newTestService(repo)

	for _, limit := range []int{0, -1, 1000} {
		_, err := svc.List(context.Background(), limit)
		require.NoError(t, err)
		assert.Equal(t, MaxListSize, gotLimit)
	}

	_, err := svc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, gotLimit)
}

func TestUpdate_OrganizerOnly(t *testing.T) {
	updated := false
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) { return storedEvent(), nil },
		updateEventFn: func(ctx context.Context, id string, params UpdateEventParams) (*Event, error) {
			updated = true
			return storedEvent(), nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), strangerID, eventID, Patch{Title: strPtr("Hijacked")})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, updated)
}

func TestUpdate_AppliesPatch(t *testing.T) {
	var got UpdateEventParams
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) { return storedEvent(), nil },
		updateEventFn: func(ctx context.Context, id string, params UpdateEventParams) (*Event, error) {
			got = params
			e := storedEvent()
			e.Title = params.Title
			e.MaxAttendees = params.MaxAttendees
			return e, nil
		},
	}
	svc := newTestService(repo)

	event, err := svc.Update(context.Background(), organizerID, eventID, Patch{
		Title:             strPtr("Go Meetup #2"),
		ClearMaxAttendees: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Meetup #2", got.Title)
	assert.Equal(t, "Hall", got.Location)
	assert.Nil(t, got.MaxAttendees)
	assert.Equal(t, "Go Meetup #2", event.Title)
}

func TestUpdate_RevalidatesChangedFields(t *testing.T) {
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) { return storedEvent(), nil },
	}
	svc := newTestService(repo)
	past := now.Add(-time.Hour)

	_, err := svc.Update(context.Background(), organizerID, eventID, Patch{Date: &past})
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = svc.Update(context.Background(), organizerID, eventID, Patch{MaxAttendees: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestUpdate_PermissionCheckedBeforeValidation(t *testing.T) {
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) { return storedEvent(), nil },
	}
	svc := newTestService(repo)
	past := now.Add(-time.Hour)

	_, err := svc.Update(context.Background(), strangerID, eventID, Patch{Date: &past})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdate_EmptyPatchReturnsCurrent(t *testing.T) {
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) { return storedEvent(), nil },
	}
	svc := newTestService(repo)

	event, err := svc.Update(context.Background(), organizerID, eventID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, "Go Meetup", event.Title)
}

func TestUpdate_CapacityBelowAttendeesAllowed(t *testing.T) {
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) {
			e := storedEvent()
			e.AttendeesCount = 8
			return e, nil
		},
		updateEventFn: func(ctx context.Context, id string, params UpdateEventParams) (*Event, error) {
			e := storedEvent()
			e.MaxAttendees = params.MaxAttendees
			e.AttendeesCount = 8
			return e, nil
		},
	}
	svc := newTestService(repo)

	event, err := svc.Update(context.Background(), organizerID, eventID, Patch{MaxAttendees: intPtr(5)})
	require.NoError(t, err)
	assert.True(t, event.IsFull())
}

func TestDelete(t *testing.T) {
	var deleted string
	repo := &mockRepository{
		getEventFn: func(ctx context.Context, id string) (*Event, error) { return storedEvent(), nil },
		deleteEventFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), strangerID, eventID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, deleted)

	require.NoError(t, svc.Delete(context.Background(), organizerID, eventID))
	assert.Equal(t, eventID, deleted)
}

func TestDelete_NotFound(t *testing.T) {
	svc := newTestService(&mockRepository{})

	err := svc.Delete(context.Background(), organizerID, eventID)
	assert.ErrorIs(t, err, ErrNotFound)
}
