package handlers

import (
	"time"

	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/domain/ids"
	"github.com/Togather-Foundation/eventreg/internal/domain/registrations"
	"github.com/Togather-Foundation/eventreg/internal/domain/users"
)

type userResponse struct {
	ID                    string    `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email,omitempty"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	OrganizedEventsCount  *int      `json:"organized_events_count,omitempty"`
	RegisteredEventsCount *int      `json:"registered_events_count,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type organizerResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type eventResponse struct {
	ID             string            `json:"id"`
	URL            string            `json:"url,omitempty"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Date           time.Time         `json:"date"`
	Location       string            `json:"location"`
	Organizer      organizerResponse `json:"organizer"`
	MaxAttendees   *int              `json:"max_attendees"`
	AttendeesCount int               `json:"attendees_count"`
	IsFull         bool              `json:"is_full"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type eventDetailResponse struct {
	eventResponse
	Attendees    []attendeeResponse `json:"attendees"`
	IsRegistered bool               `json:"is_registered"`
}

type attendeeResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	RegisteredAt time.Time `json:"registered_at"`
}

type eventSummaryResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	MaxAttendees *int      `json:"max_attendees"`
}

type registrationResponse struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	EventID      string                `json:"event_id"`
	Status       string                `json:"status"`
	RegisteredAt time.Time             `json:"registered_at"`
	Event        *eventSummaryResponse `json:"event,omitempty"`
}

type capacityResponse struct {
	EventID        string `json:"event_id"`
	MaxAttendees   *int   `json:"max_attendees"`
	AttendeesCount int    `json:"attendees_count"`
	SeatsLeft      *int   `json:"seats_left"`
	IsFull         bool   `json:"is_full"`
	IsRegistered   bool   `json:"is_registered"`
}

type messageResponse struct {
	Message      string                `json:"message"`
	Registration *registrationResponse `json:"registration,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

func presentUser(u users.User, withEmail bool) userResponse {
	out := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		out.Email = u.Email
	}
	return out
}

func presentProfile(p users.Profile, withEmail bool) userResponse {
	out := presentUser(p.User, withEmail)
	organized, registered := p.OrganizedEventsCount, p.RegisteredEventsCount
	out.OrganizedEventsCount = &organized
	out.RegisteredEventsCount = &registered
	return out
}

func presentEvent(e events.Event, baseURL string) eventResponse {
	out := eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date.UTC(),
		Location:    e.Location,
		Organizer: organizerResponse{
			ID:        e.Organizer.ID,
			Username:  e.Organizer.Username,
			FirstName: e.Organizer.FirstName,
			LastName:  e.Organizer.LastName,
		},
		MaxAttendees:   e.MaxAttendees,
		AttendeesCount: e.AttendeesCount,
		IsFull:         e.IsFull(),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if baseURL != "" {
		if url, err := ids.ResourceURL(baseURL, "events", e.ID); err == nil {
			out.URL = url
		}
	}
	return out
}

func presentAttendees(items []registrations.Attendee) []attendeeResponse {
	out := make([]attendeeResponse, 0, len(items))
	for _, a := range items {
		out = append(out, attendeeResponse{
			ID:           a.RegistrationID,
			UserID:       a.UserID,
			Username:     a.Username,
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			RegisteredAt: a.RegisteredAt,
		})
	}
	return out
}

func presentRegistration(reg registrations.Registration) registrationResponse {
	return registrationResponse{
		ID:           reg.ID,
		UserID:       reg.UserID,
		EventID:      reg.EventID,
		Status:       string(reg.Status),
		RegisteredAt: reg.RegisteredAt,
	}
}

func presentUserRegistration(item registrations.UserRegistration) registrationResponse {
	resp := presentRegistration(item.Registration)
	resp.Event = &eventSummaryResponse{
		ID:           item.Event.ID,
		Title:        item.Event.Title,
		Date:         item.Event.Date.UTC(),
		Location:     item.Event.Location,
		MaxAttendees: item.Event.MaxAttendees,
	}
	return resp
}

func presentUserRegistrations(items []registrations.UserRegistration) []registrationResponse {
	out := make([]registrationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, presentUserRegistration(item))
	}
	return out
}

func presentCapacity(c registrations.Capacity) capacityResponse {
	out := capacityResponse{
		EventID:        c.EventID,
		MaxAttendees:   c.MaxAttendees,
		AttendeesCount: c.AttendeesCount,
		IsFull:         c.IsFull,
		IsRegistered:   c.IsRegistered,
	}
	if c.MaxAttendees != nil {
		left := registrations.SeatsLeft(c.MaxAttendees, c.AttendeesCount)
		out.SeatsLeft = &left
	}
	return out
}
