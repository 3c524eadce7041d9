package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
}

type eventRow struct {
	ID             string
	Title          string
	Description    string
	Date           time.Time
	Location       string
	OrganizerID    string
	Username       string
	FirstName      string
	LastName       string
	MaxAttendees   pgtype.Int4
	AttendeesCount int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const selectEventSQL = `
SELECT e.id, e.title, e.description, e.date, e.location, e.organizer_id,
       u.username, u.first_name, u.last_name,
       e.max_attendees,
       (SELECT count(*) FROM registrations r
         WHERE r.event_id = e.id AND r.status = 'confirmed') AS attendees_count,
       e.created_at, e.updated_at
  FROM events e
  JOIN users u ON u.id = e.organizer_id
`

func (r *EventRepository) CreateEvent(ctx context.Context, params events.CreateEventParams) (*events.Event, error) {
	capacity, err := nullableInt(params.MaxAttendees)
	if err != nil {
		return nil, err
	}
	_, err = r.queryer().Exec(ctx, `
INSERT INTO events (id, title, description, date, location, organizer_id, max_attendees)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`,
		params.ID,
		params.Title,
		params.Description,
		params.Date,
		params.Location,
		params.OrganizerID,
		capacity,
	)
	if err != nil {
		if isForeignKeyViolation(err, "events_organizer_id_fkey") {
			return nil, events.ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return r.GetEvent(ctx, params.ID)
}

func (r *EventRepository) GetEvent(ctx context.Context, id string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, selectEventSQL+` WHERE e.id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) ListEvents(ctx context.Context, limit int) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, selectEventSQL+`
 ORDER BY e.date DESC, e.id DESC
 LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events rows: %w", err)
	}
	return items, nil
}

func (r *EventRepository) UpdateEvent(ctx context.Context, id string, params events.UpdateEventParams) (*events.Event, error) {
	capacity, err := nullableInt(params.MaxAttendees)
	if err != nil {
		return nil, err
	}
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET title = $2,
       description = $3,
       date = $4,
       location = $5,
       max_attendees = $6,
       updated_at = now()
 WHERE id = $1
`,
		id,
		params.Title,
		params.Description,
		params.Date,
		params.Location,
		capacity,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, events.ErrNotFound
	}
	return r.GetEvent(ctx, id)
}

func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var data eventRow
	if err := row.Scan(
		&data.ID,
		&data.Title,
		&data.Description,
		&data.Date,
		&data.Location,
		&data.OrganizerID,
		&data.Username,
		&data.FirstName,
		&data.LastName,
		&data.MaxAttendees,
		&data.AttendeesCount,
		&data.CreatedAt,
		&data.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &events.Event{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Date:        data.Date.UTC(),
		Location:    data.Location,
		OrganizerID: data.OrganizerID,
		Organizer: events.Organizer{
			ID:        data.OrganizerID,
			Username:  data.Username,
			FirstName: data.FirstName,
			LastName:  data.LastName,
		},
		MaxAttendees:   intFromPg(data.MaxAttendees),
		AttendeesCount: int(data.AttendeesCount),
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}, nil
}

// nullableInt refuses values the INTEGER column cannot hold rather than
// letting int32 conversion wrap them.
func nullableInt(value *int) (pgtype.Int4, error) {
	if value == nil {
		return pgtype.Int4{}, nil
	}
	if *value < math.MinInt32 || *value > math.MaxInt32 {
		return pgtype.Int4{}, events.CapacityTooLargeError()
	}
	return pgtype.Int4{Int32: int32(*value), Valid: true}, nil
}

func intFromPg(value pgtype.Int4) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int32)
	return &v
}

func (r *EventRepository) queryer() queryer {
	return r.pool
}
