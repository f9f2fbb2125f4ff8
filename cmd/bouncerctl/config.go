package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mudlink/lifeline/internal/bouncer"
)

type fileConfig struct {
	ListenAddr       string `toml:"listen_addr"`
	UpstreamAddr     string `toml:"upstream_addr"`
	AdminAddr        string `toml:"admin_addr"`
	ReplayLimitBytes int    `toml:"replay_limit_bytes"`
	SessionTimeout   string `toml:"session_timeout"`
	ReapInterval     string `toml:"reap_interval"`
	ConnectTimeout   string `toml:"connect_timeout"`
}

func loadBouncerConfig(path string) (bouncer.Config, error) {
	cfg := bouncer.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bouncer.Config{}, fmt.Errorf("load bouncer config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("upstream_addr") {
		cfg.UpstreamAddr = strings.TrimSpace(raw.UpstreamAddr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("replay_limit_bytes") {
		cfg.ReplayLimit = raw.ReplayLimitBytes
	}
	if meta.IsDefined("session_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SessionTimeout))
		if err != nil {
			return bouncer.Config{}, fmt.Errorf("parse session_timeout: %w", err)
		}
		cfg.SessionTimeout = d
	}
	if meta.IsDefined("reap_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReapInterval))
		if err != nil {
			return bouncer.Config{}, fmt.Errorf("parse reap_interval: %w", err)
		}
		cfg.ReapInterval = d
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return bouncer.Config{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}

	return cfg, nil
}
