package bouncer

import (
	"errors"
	"time"
)

var (
	ErrListenAddrRequired   = errors.New("bouncer: listen address required")
	ErrUpstreamAddrRequired = errors.New("bouncer: upstream address required")
)

// Config defines bouncer runtime settings.
type Config struct {
	// ListenAddr accepts lifeline clients.
	ListenAddr string
	// UpstreamAddr is the long-lived connection each session fronts.
	UpstreamAddr string
	// AdminAddr serves health, session, and metrics routes; empty disables it.
	AdminAddr string
	// ReplayLimit caps retained upstream bytes per session.
	ReplayLimit int
	// SessionTimeout reaps sessions idle longer than this.
	SessionTimeout time.Duration
	ReapInterval   time.Duration
	// ConnectTimeout bounds the upstream dial.
	ConnectTimeout time.Duration
	// HandshakeTimeout bounds the wait for a client's first control frame.
	HandshakeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:       ":12345",
		ReplayLimit:      64 * 1024,
		SessionTimeout:   10 * time.Minute,
		ReapInterval:     30 * time.Second,
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = def.ReplayLimit
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = def.SessionTimeout
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = def.ReapInterval
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	return c
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrListenAddrRequired
	}
	if c.UpstreamAddr == "" {
		return ErrUpstreamAddrRequired
	}
	return nil
}
