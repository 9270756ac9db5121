// Package config provides configuration management for golaunch.
package config

import (
	"time"

	"github.com/victoralfred/golaunch/observability"
	"github.com/victoralfred/golaunch/resilience"
)

// Config is the main configuration for golaunch.
type Config struct {
	CrashLoop      resilience.CrashLoopConfig
	RestartLimiter resilience.RestartLimiterConfig
	RestartBackoff resilience.BackoffConfig
	Telemetry      observability.TelemetryConfig
	BootLog        observability.BootLogConfig
	ProfilePath    string
	ProfileBase    string
	ParamsPath     string
	Launcher       LauncherConfig
}

// LauncherConfig configures the launcher.
type LauncherConfig struct {
	DefaultTimeout time.Duration
	InheritEnv     bool
	EnableMetrics  bool
	EnableTracing  bool
	EnableBootLog  bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Launcher: LauncherConfig{
			DefaultTimeout: 30 * time.Second,
			InheritEnv:     false,
			EnableMetrics:  true,
			EnableTracing:  true,
			EnableBootLog:  true,
		},
		CrashLoop:      resilience.DefaultCrashLoopConfig(),
		RestartLimiter: resilience.DefaultRestartLimiterConfig(),
		RestartBackoff: resilience.DefaultRestartBackoffConfig(),
		Telemetry:      observability.DefaultTelemetryConfig(),
		BootLog:        observability.DefaultBootLogConfig(),
		ProfilePath:    "profile.yaml",
		ProfileBase:    "/etc/golaunch",
		ParamsPath:     "/data/params",
	}
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Launcher.DefaultTimeout = 60 * time.Second
	cfg.Launcher.InheritEnv = true
	cfg.RestartLimiter.DefaultLimit = 100
	cfg.RestartLimiter.DefaultBurst = 100
	cfg.CrashLoop.CrashThreshold = 10
	cfg.BootLog.LogLevel = observability.BootLogAll
	return cfg
}

// ProductionConfig returns configuration suitable for a device.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Launcher.DefaultTimeout = 30 * time.Second
	cfg.Launcher.InheritEnv = false
	cfg.RestartLimiter.DefaultLimit = 1
	cfg.RestartLimiter.DefaultBurst = 3
	cfg.CrashLoop.CrashThreshold = 5
	cfg.CrashLoop.Cooldown = 60 * time.Second
	cfg.BootLog.LogLevel = observability.BootLogAll
	return cfg
}

// Validate validates the configuration, filling in usable values where
// a zero value would misbehave.
func (c *Config) Validate() error {
	if c.Launcher.DefaultTimeout <= 0 {
		c.Launcher.DefaultTimeout = 30 * time.Second
	}

	if c.CrashLoop.CrashThreshold <= 0 {
		c.CrashLoop.CrashThreshold = 5
	}

	if c.RestartBackoff.InitialInterval <= 0 {
		c.RestartBackoff = resilience.DefaultRestartBackoffConfig()
	}

	if c.RestartLimiter.DefaultBurst <= 0 {
		c.RestartLimiter.DefaultBurst = 1
	}

	return nil
}
