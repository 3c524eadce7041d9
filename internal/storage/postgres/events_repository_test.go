package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/audit"
	"github.com/Togather-Foundation/eventreg/internal/clock"
	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/domain/ids"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	id, err := ids.NewULID()
	require.NoError(t, err)
	date := time.Date(2031, 3, 14, 18, 0, 0, 0, time.UTC)

	created, err := repo.Events().CreateEvent(ctx, events.CreateEventParams{
		ID:           id,
		Title:        "Go Meetup",
		Description:  "Talks and pizza",
		Date:         date,
		Location:     "Community Hall",
		OrganizerID:  organizer,
		MaxAttendees: intPtr(2),
	})
	require.NoError(t, err)

	assert.Equal(t, id, created.ID)
	assert.True(t, date.Equal(created.Date))
	assert.Equal(t, "organizer", created.Organizer.Username)
	assert.Equal(t, "Organizer", created.Organizer.FirstName)
	require.NotNil(t, created.MaxAttendees)
	assert.Equal(t, 2, *created.MaxAttendees)
	assert.Equal(t, 0, created.AttendeesCount)
	assert.False(t, created.IsFull())
}

func TestEventRepository_AttendeesCountIsLive(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	eventID := insertEvent(t, ctx, pool, organizer, "Workshop", time.Now().Add(24*time.Hour), intPtr(2))
	insertRegistration(t, ctx, pool, insertUser(t, ctx, pool, "ada"), eventID, "confirmed", time.Now())
	insertRegistration(t, ctx, pool, insertUser(t, ctx, pool, "grace"), eventID, "waitlist", time.Now())

	event, err := repo.Events().GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, event.AttendeesCount)
	assert.False(t, event.IsFull())

	insertRegistration(t, ctx, pool, insertUser(t, ctx, pool, "linus"), eventID, "confirmed", time.Now())

	event, err = repo.Events().GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, event.AttendeesCount)
	assert.True(t, event.IsFull())
}

func TestEventRepository_ListOrdersByDateDesc(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	base := time.Date(2031, 1, 1, 12, 0, 0, 0, time.UTC)
	insertEvent(t, ctx, pool, organizer, "January", base, nil)
	insertEvent(t, ctx, pool, organizer, "March", base.AddDate(0, 2, 0), nil)
	insertEvent(t, ctx, pool, organizer, "February", base.AddDate(0, 1, 0), nil)

	list, err := repo.Events().ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "March", list[0].Title)
	assert.Equal(t, "February", list[1].Title)
	assert.Equal(t, "January", list[2].Title)

	limited, err := repo.Events().ListEvents(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestEventRepository_UpdateAndClearCapacity(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	eventID := insertEvent(t, ctx, pool, organizer, "Before", time.Now().Add(24*time.Hour), intPtr(5))
	newDate := time.Date(2032, 5, 5, 10, 0, 0, 0, time.UTC)

	updated, err := repo.Events().UpdateEvent(ctx, eventID, events.UpdateEventParams{
		Title:       "After",
		Description: "New description",
		Date:        newDate,
		Location:    "Library",
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, "Library", updated.Location)
	assert.True(t, newDate.Equal(updated.Date))
	assert.Nil(t, updated.MaxAttendees, "nil capacity means unlimited")

	_, err = repo.Events().UpdateEvent(ctx, "01HZY3M3K5Q7V9X2B4D6F8H0JA", events.UpdateEventParams{Title: "x", Date: newDate})
	assert.ErrorIs(t, err, events.ErrNotFound)
}

func TestEventRepository_RejectsNonPositiveCapacity(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	id, err := ids.NewULID()
	require.NoError(t, err)

	_, err = repo.Events().CreateEvent(ctx, events.CreateEventParams{
		ID:           id,
		Title:        "Zero",
		Description:  "d",
		Date:         time.Now().Add(time.Hour),
		Location:     "l",
		OrganizerID:  organizer,
		MaxAttendees: intPtr(0),
	})
	require.Error(t, err)
}

func TestEventRepository_RefusesCapacityBeyondInt4(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	id, err := ids.NewULID()
	require.NoError(t, err)

	_, err = repo.Events().CreateEvent(ctx, events.CreateEventParams{
		ID:           id,
		Title:        "Stadium",
		Description:  "d",
		Date:         time.Now().Add(time.Hour),
		Location:     "l",
		OrganizerID:  organizer,
		MaxAttendees: intPtr(math.MaxInt32 + 2),
	})
	assert.ErrorIs(t, err, events.ErrCapacityTooLarge)
	_, err = repo.Events().GetEvent(ctx, id)
	assert.ErrorIs(t, err, events.ErrNotFound, "nothing may be stored")

	eventID := insertEvent(t, ctx, pool, organizer, "Hall", time.Now().Add(time.Hour), intPtr(5))
	_, err = repo.Events().UpdateEvent(ctx, eventID, events.UpdateEventParams{
		Title:        "Hall",
		Description:  "d",
		Date:         time.Now().Add(time.Hour),
		Location:     "l",
		MaxAttendees: intPtr(math.MaxInt32 + 1),
	})
	assert.ErrorIs(t, err, events.ErrCapacityTooLarge)

	event, err := repo.Events().GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 5, *event.MaxAttendees)
}

func TestEventRepository_MissingOrganizer(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	id, err := ids.NewULID()
	require.NoError(t, err)
	ghost, err := ids.NewULID()
	require.NoError(t, err)

	_, err = repo.Events().CreateEvent(ctx, events.CreateEventParams{
		ID:          id,
		Title:       "Orphan",
		Description: "d",
		Date:        time.Now().Add(time.Hour),
		Location:    "l",
		OrganizerID: ghost,
	})
	assert.ErrorIs(t, err, events.ErrOrganizerNotFound)
}

func TestNullableInt(t *testing.T) {
	v, err := nullableInt(nil)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	v, err = nullableInt(intPtr(math.MaxInt32))
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), v.Int32)

	for _, n := range []int{math.MaxInt32 + 1, 4294967297} {
		_, err = nullableInt(intPtr(n))
		assert.ErrorIs(t, err, events.ErrCapacityTooLarge, "%d", n)
	}
}

func TestEventRepository_DeleteCascadesRegistrations(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	organizer := insertUser(t, ctx, pool, "organizer")
	eventID := insertEvent(t, ctx, pool, organizer, "Doomed", time.Now().Add(24*time.Hour), nil)
	insertRegistration(t, ctx, pool, insertUser(t, ctx, pool, "ada"), eventID, "confirmed", time.Now())

	require.NoError(t, repo.Events().DeleteEvent(ctx, eventID))

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&remaining))
	assert.Zero(t, remaining)

	_, err = repo.Events().GetEvent(ctx, eventID)
	assert.ErrorIs(t, err, events.ErrNotFound)
	assert.ErrorIs(t, repo.Events().DeleteEvent(ctx, eventID), events.ErrNotFound)
}

func TestEventService_LifecycleAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := events.NewService(repo.Events(), clock.Fixed(now), audit.Nop(), zerolog.Nop())
	organizer := insertUser(t, ctx, pool, "organizer")
	stranger := insertUser(t, ctx, pool, "stranger")

	created, err := svc.Create(ctx, organizer, events.Draft{
		Title:        "  <b>Go</b> Meetup ",
		Description:  "Talks",
		Date:         now.Add(72 * time.Hour),
		Location:     "Hall",
		MaxAttendees: intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Meetup", created.Title)
	assert.Equal(t, organizer, created.OrganizerID)

	newTitle := "Go Meetup (moved)"
	_, err = svc.Update(ctx, stranger, created.ID, events.Patch{Title: &newTitle})
	assert.ErrorIs(t, err, events.ErrPermissionDenied)

	updated, err := svc.Update(ctx, organizer, created.ID, events.Patch{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	require.NotNil(t, updated.MaxAttendees)
	assert.Equal(t, 10, *updated.MaxAttendees)

	assert.ErrorIs(t, svc.Delete(ctx, stranger, created.ID), events.ErrPermissionDenied)
	require.NoError(t, svc.Delete(ctx, organizer, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, events.ErrNotFound)
}
