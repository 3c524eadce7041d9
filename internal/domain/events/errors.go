package events

import (
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventreg/internal/validation"
)

var (
	ErrNotFound         = errors.New("event not found")
	ErrPermissionDenied = errors.New("only the organizer can modify this event")
	ErrPastDate         = errors.New("event date cannot be in the past")
	ErrInvalidCapacity  = errors.New("max attendees must be greater than 0")
	ErrCapacityTooLarge = fmt.Errorf("max attendees must be at most %d", MaxCapacity)

	// ErrOrganizerNotFound means the organizer account vanished between
	// authentication and insert.
	ErrOrganizerNotFound = errors.New("organizer not found")
)

// ValidationError describes one invalid field of a draft or patch.
type ValidationError = validation.FieldError

// PastDateError is returned when an event is scheduled before now.
func PastDateError() ValidationError {
	return ValidationError{Field: "date", Message: ErrPastDate.Error(), Err: ErrPastDate}
}

// InvalidCapacityError is returned when max_attendees is set but not positive.
func InvalidCapacityError() ValidationError {
	return ValidationError{Field: "max_attendees", Message: ErrInvalidCapacity.Error(), Err: ErrInvalidCapacity}
}

// CapacityTooLargeError is returned when max_attendees exceeds MaxCapacity.
func CapacityTooLargeError() ValidationError {
	return ValidationError{Field: "max_attendees", Message: ErrCapacityTooLarge.Error(), Err: ErrCapacityTooLarge}
}
