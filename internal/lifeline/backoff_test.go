package lifeline

import (
	"testing"
	"time"
)

func TestBackoffScheduleMatchesProtocolDefaults(t *testing.T) {
	cfg := DefaultConfig().Backoff
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := NextBackoffDelay(cfg, i+1); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
	for _, attempt := range []int{6, 7, 12, 20} {
		if got := NextBackoffDelay(cfg, attempt); got != 30*time.Second {
			t.Fatalf("attempt %d: got %v want capped 30s", attempt, got)
		}
	}
}

func TestNextBackoffDelayClampsMultiplier(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 0.5, MaxDelay: time.Minute}
	if got := NextBackoffDelay(cfg, 4); got != time.Second {
		t.Fatalf("sub-1.0 multiplier must not shrink delays: %v", got)
	}
}

func TestReconnectorBudget(t *testing.T) {
	r := &reconnector{cfg: DefaultConfig().Backoff, max: 3}
	for i := 1; i <= 3; i++ {
		if _, ok := r.next(); !ok {
			t.Fatalf("attempt %d should be within budget", i)
		}
	}
	if _, ok := r.next(); ok {
		t.Fatalf("attempt 4 should exhaust the budget")
	}
	r.reset()
	if _, ok := r.next(); !ok {
		t.Fatalf("reset should restore the budget")
	}
}
