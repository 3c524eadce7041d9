package registrations

// IsFull reports whether an event with the given capacity is full at the
// given confirmed count. A nil capacity means unlimited.
func IsFull(maxAttendees *int, confirmed int) bool {
	if maxAttendees == nil {
		return false
	}
	return confirmed >= *maxAttendees
}

// SeatsLeft returns the remaining seats, or -1 for unlimited events. It never
// goes below zero even when capacity was lowered under the confirmed count.
func SeatsLeft(maxAttendees *int, confirmed int) int {
	if maxAttendees == nil {
		return -1
	}
	if left := *maxAttendees - confirmed; left > 0 {
		return left
	}
	return 0
}
