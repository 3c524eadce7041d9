// Package clock supplies the notion of "now" to services so that date rules
// can be tested deterministically.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f().UTC() }

// System returns a clock backed by time.Now.
func System() Clock {
	return Func(time.Now)
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	t = t.UTC()
	return Func(func() time.Time { return t })
}
