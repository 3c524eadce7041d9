package registrations

import "time"

// Status is the lifecycle state of a registration row. Only StatusConfirmed
// is ever written; cancelled and waitlist are accepted by storage but no
// operation produces them. Unregistering deletes the row.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusWaitlist  Status = "waitlist"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusWaitlist:
		return true
	}
	return false
}

type Registration struct {
	ID           string
	UserID       string
	EventID      string
	Status       Status
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// EventSnapshot is the subset of an event the registration rules need.
type EventSnapshot struct {
	ID           string
	Title        string
	Location     string
	Date         time.Time
	OrganizerID  string
	MaxAttendees *int
}

// Participant is the registering user as seen by notifications.
type Participant struct {
	ID        string
	Username  string
	Email     string
	FirstName string
}

// Attendee is a confirmed registration joined with its user.
type Attendee struct {
	RegistrationID string
	UserID         string
	Username       string
	FirstName      string
	LastName       string
	RegisteredAt   time.Time
}

// UserRegistration is one of a user's registrations with its event.
type UserRegistration struct {
	Registration Registration
	Event        EventSnapshot
}

// Capacity is a point-in-time view of an event's seats.
type Capacity struct {
	EventID        string
	MaxAttendees   *int
	AttendeesCount int
	IsFull         bool
	IsRegistered   bool
}

type NoticeKind string

const (
	NoticeRegistrationConfirmed NoticeKind = "registration_confirmed"
	NoticeRegistrationCancelled NoticeKind = "registration_cancelled"
)

// Notice is a snapshot of everything a notification needs, taken inside the
// registration transaction so delivery never has to read the database.
type Notice struct {
	Kind          NoticeKind
	UserID        string
	Username      string
	Email         string
	FirstName     string
	EventID       string
	EventTitle    string
	EventLocation string
	EventDate     time.Time
}

func newNotice(kind NoticeKind, user Participant, event EventSnapshot) Notice {
	return Notice{
		Kind:          kind,
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		FirstName:     user.FirstName,
		EventID:       event.ID,
		EventTitle:    event.Title,
		EventLocation: event.Location,
		EventDate:     event.Date,
	}
}
