package events

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Togather-Foundation/eventreg/internal/sanitize"
	"github.com/Togather-Foundation/eventreg/internal/validation"
)

var draftValidator = validation.New()

// ValidateDraft sanitizes a draft and checks every creation rule. All field
// problems are reported together as validation.Errors.
func ValidateDraft(d Draft, now time.Time) (Draft, error) {
	d.Title = sanitize.Text(d.Title)
	d.Location = sanitize.Text(d.Location)
	d.Description = sanitize.HTML(d.Description)
	if !d.Date.IsZero() {
		d.Date = d.Date.UTC()
	}

	errs := draftValidator.Collect(d)
	if !d.Date.IsZero() && d.Date.Before(now) {
		errs = append(errs, PastDateError())
	}
	if d.MaxAttendees != nil {
		errs = append(errs, checkCapacity(*d.MaxAttendees)...)
	}
	return d, errs.OrNil()
}

// ValidatePatch sanitizes the fields present in p and re-checks only those.
func ValidatePatch(p Patch, now time.Time) (Patch, error) {
	var errs validation.Errors

	if p.Title != nil {
		title := sanitize.Text(*p.Title)
		p.Title = &title
		errs = append(errs, checkText("title", title, MaxTitleLength)...)
	}
	if p.Location != nil {
		location := sanitize.Text(*p.Location)
		p.Location = &location
		errs = append(errs, checkText("location", location, MaxLocationLength)...)
	}
	if p.Description != nil {
		description := sanitize.HTML(*p.Description)
		p.Description = &description
		if description == "" {
			errs = append(errs, validation.FieldError{Field: "description", Message: "is required"})
		}
	}
	if p.Date != nil {
		date := p.Date.UTC()
		p.Date = &date
		switch {
		case date.IsZero():
			errs = append(errs, validation.FieldError{Field: "date", Message: "is required"})
		case date.Before(now):
			errs = append(errs, PastDateError())
		}
	}
	if p.ClearMaxAttendees {
		p.MaxAttendees = nil
	} else if p.MaxAttendees != nil {
		errs = append(errs, checkCapacity(*p.MaxAttendees)...)
	}

	return p, errs.OrNil()
}

func checkCapacity(n int) validation.Errors {
	switch {
	case n <= 0:
		return validation.Errors{InvalidCapacityError()}
	case n > MaxCapacity:
		return validation.Errors{CapacityTooLargeError()}
	}
	return nil
}

func checkText(field, value string, max int) validation.Errors {
	if strings.TrimSpace(value) == "" {
		return validation.Errors{{Field: field, Message: "is required"}}
	}
	if utf8.RuneCountInString(value) > max {
		return validation.Errors{{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}}
	}
	return nil
}

// Apply returns e with the patch fields written over it.
func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.ClearMaxAttendees {
		e.MaxAttendees = nil
	} else if p.MaxAttendees != nil {
		capacity := *p.MaxAttendees
		e.MaxAttendees = &capacity
	}
	return e
}
