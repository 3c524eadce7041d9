package events

import (
	"context"
	"time"
)

// Repository abstracts event persistence. Reads populate Organizer and the
// live AttendeesCount; missing rows return ErrNotFound.
type Repository interface {
	CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, limit int) ([]Event, error)
	UpdateEvent(ctx context.Context, id string, params UpdateEventParams) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type CreateEventParams struct {
	ID           string
	Title        string
	Description  string
	Date         time.Time
	Location     string
	OrganizerID  string
	MaxAttendees *int
}

// UpdateEventParams carries the full set of mutable columns after a patch
// has been applied.
type UpdateEventParams struct {
	Title        string
	Description  string
	Date         time.Time
	Location     string
	MaxAttendees *int
}
