package main

import (
	"testing"
	"time"
)

func TestFrameBudget(t *testing.T) {
	tests := []struct {
		name       string
		limit, bg  int
		background bool
		want       time.Duration
	}{
		{"unlimited foreground", 0, 5, false, 0},
		{"capped foreground", 50, 5, false, 20 * time.Millisecond},
		{"background of unlimited", 0, 5, true, 200 * time.Millisecond},
		{"background slower than cap", 60, 10, true, 100 * time.Millisecond},
		{"background faster than cap", 4, 10, true, 250 * time.Millisecond},
		{"no background cap", 0, 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frameBudget(tt.limit, tt.bg, tt.background); got != tt.want {
				t.Errorf("frameBudget() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLimiterSleepsRemainder(t *testing.T) {
	clock := time.Unix(100, 0)
	var slept time.Duration
	l := &limiter{
		now:   func() time.Time { return clock },
		sleep: func(d time.Duration) { slept += d },
	}

	l.begin()
	clock = clock.Add(15 * time.Millisecond)
	l.wait(20 * time.Millisecond)
	if slept != 5*time.Millisecond {
		t.Errorf("slept %v, want 5ms", slept)
	}

	slept = 0
	l.begin()
	clock = clock.Add(30 * time.Millisecond)
	l.wait(20 * time.Millisecond)
	if slept != 0 {
		t.Errorf("slept %v on an overrun frame", slept)
	}
}
