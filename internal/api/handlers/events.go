package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/api/middleware"
	"github.com/Togather-Foundation/eventreg/internal/domain/events"
	"github.com/Togather-Foundation/eventreg/internal/validation"
)

type EventsHandler struct {
	Events        EventService
	Registrations RegistrationService
	Env           string
	BaseURL       string
}

func NewEventsHandler(eventsService EventService, registrationsService RegistrationService, env, baseURL string) *EventsHandler {
	return &EventsHandler{Events: eventsService, Registrations: registrationsService, Env: env, BaseURL: baseURL}
}

// List returns events newest first. ?limit= narrows the result, never past
// events.MaxListSize.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := events.MaxListSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, r, h.Env, validation.Errors{{Field: "limit", Message: "must be a positive integer"}})
			return
		}
		limit = parsed
	}

	items, err := h.Events.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	out := make([]eventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, presentEvent(e, h.BaseURL))
	}
	writeJSON(w, http.StatusOK, newListResponse(out))
}

// Create stores a new event organized by the caller (201).
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft events.Draft
	if err := decodeJSON(r, &draft); err != nil {
		writeDecodeError(w, r, h.Env, err)
		return
	}

	event, err := h.Events.Create(r.Context(), middleware.UserIDFromContext(r.Context()), draft)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	resp := presentEvent(*event, h.BaseURL)
	if resp.URL != "" {
		w.Header().Set("Location", resp.URL)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns the event with its confirmed attendees. is_registered reflects
// the caller and is false for anonymous requests.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	event, err := h.Events.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	attendees, err := h.Registrations.ListAttendees(r.Context(), event.ID)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	registered, err := h.Registrations.IsRegistered(r.Context(), middleware.UserIDFromContext(r.Context()), event.ID)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}

	writeJSON(w, http.StatusOK, eventDetailResponse{
		eventResponse: presentEvent(*event, h.BaseURL),
		Attendees:     presentAttendees(attendees),
		IsRegistered:  registered,
	})
}

// Patch applies a partial update. Sending "max_attendees": null removes the
// capacity limit.
func (h *EventsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		writeDecodeError(w, r, h.Env, err)
		return
	}
	patch, errs := patchFromJSON(raw)
	if len(errs) > 0 {
		writeBadRequest(w, r, h.Env, errs)
		return
	}
	h.update(w, r, id, patch)
}

// Put replaces every editable field. An omitted max_attendees means unlimited.
func (h *EventsHandler) Put(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	var draft events.Draft
	if err := decodeJSON(r, &draft); err != nil {
		writeDecodeError(w, r, h.Env, err)
		return
	}
	h.update(w, r, id, events.Patch{
		Title:             &draft.Title,
		Description:       &draft.Description,
		Date:              &draft.Date,
		Location:          &draft.Location,
		MaxAttendees:      draft.MaxAttendees,
		ClearMaxAttendees: draft.MaxAttendees == nil,
	})
}

func (h *EventsHandler) update(w http.ResponseWriter, r *http.Request, id string, patch events.Patch) {
	event, err := h.Events.Update(r.Context(), middleware.UserIDFromContext(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, presentEvent(*event, h.BaseURL))
}

// Delete removes an event owned by the caller (204).
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	if err := h.Events.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register signs the caller up for the event (201).
func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	reg, err := h.Registrations.Register(r.Context(), middleware.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	resp := presentRegistration(*reg)
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Successfully registered for event", Registration: &resp})
}

// Unregister removes the caller's registration.
func (h *EventsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	if err := h.Registrations.Unregister(r.Context(), middleware.UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Successfully unregistered from event"})
}

// Attendees lists the confirmed attendees, earliest registration first.
func (h *EventsHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	items, err := h.Registrations.ListAttendees(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(presentAttendees(items)))
}

// Capacity reports seats for the event and whether the caller holds one.
func (h *EventsHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}
	capacity, err := h.Registrations.Capacity(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, presentCapacity(*capacity))
}

// patchFromJSON distinguishes absent fields from explicit nulls, which the
// typed decoder cannot.
func patchFromJSON(raw map[string]json.RawMessage) (events.Patch, validation.Errors) {
	var (
		patch events.Patch
		errs  validation.Errors
	)

	decodeString := func(field string) *string {
		value, ok := raw[field]
		if !ok {
			return nil
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			errs = append(errs, validation.FieldError{Field: field, Message: "must be a string", Err: err})
			return nil
		}
		return &s
	}

	patch.Title = decodeString("title")
	patch.Description = decodeString("description")
	patch.Location = decodeString("location")

	if value, ok := raw["date"]; ok {
		var date time.Time
		if err := json.Unmarshal(value, &date); err != nil {
			errs = append(errs, validation.FieldError{Field: "date", Message: "must be an RFC 3339 timestamp", Err: err})
		} else {
			patch.Date = &date
		}
	}

	if value, ok := raw["max_attendees"]; ok {
		if isJSONNull(value) {
			patch.ClearMaxAttendees = true
		} else {
			var capacity int
			if err := json.Unmarshal(value, &capacity); err != nil {
				errs = append(errs, validation.FieldError{Field: "max_attendees", Message: "must be an integer or null", Err: err})
			} else {
				patch.MaxAttendees = &capacity
			}
		}
	}

	return patch, errs
}

func isJSONNull(value json.RawMessage) bool {
	var probe any
	return json.Unmarshal(value, &probe) == nil && probe == nil
}
