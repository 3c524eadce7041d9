package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	at := time.Date(2030, 5, 1, 18, 30, 0, 0, time.FixedZone("EST", -5*3600))
	c := Fixed(at)

	if got := c.Now(); !got.Equal(at) {
		t.Fatalf("Now() = %v, want %v", got, at)
	}
	if c.Now().Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", c.Now().Location())
	}
}

func TestSystemAdvances(t *testing.T) {
	c := System()
	before := time.Now().Add(-time.Second)
	if got := c.Now(); got.Before(before) {
		t.Fatalf("system clock returned stale time %v", got)
	}
}
