package lifeline

import (
	"time"

	"github.com/mudlink/lifeline/internal/protocol/frame"
)

// Config defines reconnect and framing limits for one socket.
type Config struct {
	ConnectTimeout  time.Duration
	MaxAttempts     int
	MaxPendingFrame int
	Backoff         BackoffConfig
}

// DefaultConfig returns the protocol defaults: 20 reconnect attempts with a
// 1s..30s doubling backoff.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		MaxAttempts:     20,
		MaxPendingFrame: frame.DefaultMaxPending,
		Backoff: BackoffConfig{
			InitialDelay: time.Second,
			Multiplier:   2.0,
			MaxDelay:     30 * time.Second,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.MaxPendingFrame <= 0 {
		c.MaxPendingFrame = def.MaxPendingFrame
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
