package registrations

import "errors"

// Registration rule violations. Register checks them in the order listed and
// returns the first one that applies.
var (
	ErrOwnerSelfRegistration = errors.New("organizers cannot register for their own event")
	ErrDuplicateRegistration = errors.New("already registered for this event")
	ErrCapacityExceeded      = errors.New("event is at full capacity")
	ErrEventInPast           = errors.New("cannot register for past events")
	ErrNotRegistered         = errors.New("not registered for this event")
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrUserNotFound  = errors.New("user not found")

	// ErrRegistrationNotFound also covers registrations owned by someone
	// else, so their existence is not revealed.
	ErrRegistrationNotFound = errors.New("registration not found")
)
