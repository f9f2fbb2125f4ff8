package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mudlink/lifeline/internal/lifeline"
)

type fileConfig struct {
	Target            string  `toml:"target"`
	ConnectTimeout    string  `toml:"connect_timeout"`
	MaxAttempts       int     `toml:"max_reconnect_attempts"`
	BackoffInitial    string  `toml:"backoff_initial"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	BackoffMax        string  `toml:"backoff_max"`
}

type clientConfig struct {
	Target string
	Socket lifeline.Config
}

func defaultClientConfig() clientConfig {
	return clientConfig{Socket: lifeline.DefaultConfig()}
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load lifeline config: %w", err)
	}

	if meta.IsDefined("target") {
		cfg.Target = strings.TrimSpace(raw.Target)
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.Socket.ConnectTimeout = d
	}
	if meta.IsDefined("max_reconnect_attempts") {
		cfg.Socket.MaxAttempts = raw.MaxAttempts
	}
	if meta.IsDefined("backoff_initial") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffInitial))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse backoff_initial: %w", err)
		}
		cfg.Socket.Backoff.InitialDelay = d
	}
	if meta.IsDefined("backoff_multiplier") {
		cfg.Socket.Backoff.Multiplier = raw.BackoffMultiplier
	}
	if meta.IsDefined("backoff_max") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffMax))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse backoff_max: %w", err)
		}
		cfg.Socket.Backoff.MaxDelay = d
	}

	return cfg, nil
}
