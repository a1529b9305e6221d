// Package config holds the tunable settings of a serve session.
// Values come from DefaultConfig and are overridden by CLI flags only.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level configuration for one htmlserve run.
type Config struct {
	Lifecycle LifecycleConfig
	Server    ServerConfig
}

// LifecycleConfig controls how the browser page's liveness is tracked.
type LifecycleConfig struct {
	HeartbeatInterval time.Duration // how often the page posts a heartbeat
	HeartbeatTimeout  time.Duration // silence after which the page is considered gone
	CheckInterval     time.Duration // how often the monitor checks for silence
	HiddenGrace       time.Duration // how long a hidden tab may stay hidden before it counts as closed
	ForceExitAfter    time.Duration // hard ceiling on the session's lifetime
	UnloadGrace       time.Duration // delay between an unload signal and closing the listener
}

// ServerConfig controls the loopback HTTP server.
type ServerConfig struct {
	Host            string
	ShutdownTimeout time.Duration
	OpenBrowser     bool
}

// DefaultConfig returns a Config populated with the standard timings.
func DefaultConfig() *Config {
	return &Config{
		Lifecycle: LifecycleConfig{
			HeartbeatInterval: 5 * time.Second,
			HeartbeatTimeout:  8 * time.Second,
			CheckInterval:     3 * time.Second,
			HiddenGrace:       2 * time.Second,
			ForceExitAfter:    5 * time.Minute,
			UnloadGrace:       100 * time.Millisecond,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			ShutdownTimeout: 2 * time.Second,
			OpenBrowser:     true,
		},
	}
}

// Validate reports the first setting that would make the session misbehave.
func (c *Config) Validate() error {
	l := c.Lifecycle
	if l.HeartbeatInterval <= 0 {
		return errors.New("config: heartbeat interval must be positive")
	}
	if l.HeartbeatTimeout <= 0 {
		return errors.New("config: heartbeat timeout must be positive")
	}
	if l.CheckInterval <= 0 {
		return errors.New("config: check interval must be positive")
	}
	if l.ForceExitAfter <= 0 {
		return errors.New("config: max lifetime must be positive")
	}
	if l.HiddenGrace < 0 || l.UnloadGrace < 0 {
		return errors.New("config: grace periods must not be negative")
	}
	if l.HeartbeatTimeout <= l.HeartbeatInterval {
		return fmt.Errorf("config: heartbeat timeout %s must exceed heartbeat interval %s",
			l.HeartbeatTimeout, l.HeartbeatInterval)
	}
	if c.Server.Host == "" {
		return errors.New("config: server host is empty")
	}
	return nil
}
