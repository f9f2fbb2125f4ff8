package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
target = "bouncer.example:12345"
connect_timeout = "2s"
max_reconnect_attempts = 5
backoff_initial = "250ms"
backoff_multiplier = 3.0
backoff_max = "10s"
`)

	cfg, err := loadClientConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Target != "bouncer.example:12345" {
		t.Fatalf("unexpected target: %q", cfg.Target)
	}
	if cfg.Socket.ConnectTimeout != 2*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Socket.ConnectTimeout)
	}
	if cfg.Socket.MaxAttempts != 5 {
		t.Fatalf("unexpected max attempts: %d", cfg.Socket.MaxAttempts)
	}
	if cfg.Socket.Backoff.InitialDelay != 250*time.Millisecond {
		t.Fatalf("unexpected backoff initial: %v", cfg.Socket.Backoff.InitialDelay)
	}
	if cfg.Socket.Backoff.Multiplier != 3.0 {
		t.Fatalf("unexpected backoff multiplier: %v", cfg.Socket.Backoff.Multiplier)
	}
	if cfg.Socket.Backoff.MaxDelay != 10*time.Second {
		t.Fatalf("unexpected backoff max: %v", cfg.Socket.Backoff.MaxDelay)
	}
}

func TestLoadClientConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
target = "127.0.0.1:12345"
`)

	cfg, err := loadClientConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Socket.MaxAttempts != 20 {
		t.Fatalf("unexpected max attempts: %d", cfg.Socket.MaxAttempts)
	}
	if cfg.Socket.Backoff.InitialDelay != time.Second {
		t.Fatalf("unexpected backoff initial: %v", cfg.Socket.Backoff.InitialDelay)
	}
	if cfg.Socket.Backoff.MaxDelay != 30*time.Second {
		t.Fatalf("unexpected backoff max: %v", cfg.Socket.Backoff.MaxDelay)
	}
}

func TestLoadClientConfigBadDuration(t *testing.T) {
	path := writeConfig(t, `
backoff_initial = "soon"
`)

	if _, err := loadClientConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
