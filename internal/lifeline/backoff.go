package lifeline

import (
	"math"
	"time"
)

// BackoffConfig defines the reconnect retry schedule.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// NextBackoffDelay returns the delay before reconnect attempt N (1-based):
// min(initial * multiplier^(N-1), max).
func NextBackoffDelay(cfg BackoffConfig, attempt int) time.Duration {
	if attempt <= 1 || cfg.InitialDelay <= 0 {
		return cfg.InitialDelay
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// reconnector owns retry accounting between transport failures.
type reconnector struct {
	cfg      BackoffConfig
	max      int
	attempts int
}

// reset clears the attempt counter after a successful open.
func (r *reconnector) reset() {
	r.attempts = 0
}

// next accounts one failure and returns the delay before the following
// attempt, or false when the attempt budget is exhausted.
func (r *reconnector) next() (time.Duration, bool) {
	r.attempts++
	if r.attempts > r.max {
		return 0, false
	}
	return NextBackoffDelay(r.cfg, r.attempts), true
}
