package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

var errUnparsableDate = errors.New("could not understand date")

// parseEventDate accepts RFC 3339 or free-form input such as "next friday
// 7pm". Relative phrases resolve against now and prefer future dates.
func parseEventDate(input string, now time.Time, loc *time.Location) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, errUnparsableDate
	}
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}

	cfg := &dps.Configuration{
		CurrentTime:         now.In(loc),
		DefaultTimezone:     loc,
		PreferredDateSource: dps.Future,
	}
	parsed, err := dps.Parse(cfg, input)
	if err != nil || parsed.Time.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q", errUnparsableDate, input)
	}
	return parsed.Time.UTC(), nil
}
