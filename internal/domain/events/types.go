package events

import (
	"math"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
)

const (
	MaxTitleLength    = 200
	MaxLocationLength = 300

	// MaxCapacity is the largest max_attendees the INTEGER column can hold.
	MaxCapacity = math.MaxInt32

	// MaxListSize bounds List; there is no pagination.
	MaxListSize = 100
)

// Organizer is the public summary of the user who owns an event.
type Organizer struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// Event is a scheduled happening. MaxAttendees nil means unlimited.
// AttendeesCount is the live number of confirmed registrations at read time.
type Event struct {
	ID             string
	Title          string
	Description    string
	Date           time.Time
	Location       string
	OrganizerID    string
	Organizer      Organizer
	MaxAttendees   *int
	AttendeesCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsFull reports whether the event had reached capacity when it was read.
func (e Event) IsFull() bool {
	return registrations.IsFull(e.MaxAttendees, e.AttendeesCount)
}

// IsPast reports whether the event date is before now.
func (e Event) IsPast(now time.Time) bool {
	return e.Date.Before(now)
}

// Draft is the input for creating an event.
type Draft struct {
	Title        string    `json:"title" validate:"required,max=200"`
	Description  string    `json:"description" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Location     string    `json:"location" validate:"required,max=300"`
	MaxAttendees *int      `json:"max_attendees"`
}

// Patch is a partial update. Nil fields are left unchanged.
// ClearMaxAttendees removes the capacity limit and wins over MaxAttendees.
type Patch struct {
	Title             *string
	Description       *string
	Date              *time.Time
	Location          *string
	MaxAttendees      *int
	ClearMaxAttendees bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil &&
		p.Location == nil && p.MaxAttendees == nil && !p.ClearMaxAttendees
}
