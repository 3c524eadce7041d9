package registrations

import "testing"

func TestIsFull(t *testing.T) {
	capacity := func(n int) *int { return &n }
	tests := []struct {
		name      string
		max       *int
		confirmed int
		want      bool
	}{
		{"unlimited empty", nil, 0, false},
		{"unlimited busy", nil, 1_000_000, false},
		{"below capacity", capacity(3), 2, false},
		{"at capacity", capacity(3), 3, true},
		{"over capacity after lowering", capacity(3), 5, true},
		{"single seat free", capacity(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFull(tt.max, tt.confirmed); got != tt.want {
				t.Fatalf("IsFull(%v, %d) = %v, want %v", tt.max, tt.confirmed, got, tt.want)
			}
		})
	}
}

func TestSeatsLeft(t *testing.T) {
	five := 5
	if got := SeatsLeft(nil, 10); got != -1 {
		t.Errorf("unlimited: got %d, want -1", got)
	}
	if got := SeatsLeft(&five, 2); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
	if got := SeatsLeft(&five, 7); got != 0 {
		t.Errorf("over capacity: got %d, want 0", got)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusConfirmed, StatusCancelled, StatusWaitlist} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("pending").Valid() {
		t.Error("unknown status should be invalid")
	}
}
