// Package golaunch provides boot environment initialization and managed
// process launch for embedded devices.
//
// GoLaunch centralizes all process invocation behind a minimal API,
// banning direct os/exec usage elsewhere. Every launched process
// receives a deterministically initialized environment: thread caps for
// numeric libraries are forced to safe values, platform defaults are
// filled in where unset, and device identity variables are set from
// fixed literals and optional on-disk sources.
//
// # Quick Start
//
// The simplest way to use golaunch:
//
//	// Create a launcher that applies the device boot profile
//	l, err := golaunch.NewBuilder().
//	    WithProfile(golaunch.DeviceProfile()).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Shutdown(context.Background())
//
//	// Run a process to completion
//	cmd, _ := golaunch.Cmd("/usr/bin/modeld").Build()
//	result, err := l.Run(ctx, cmd)
//
// # Bootstrapping the Current Process
//
// To initialize the calling process's own environment instead of a
// child's:
//
//	if err := golaunch.Bootstrap(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # With a Profile File
//
// Boot profiles can also be loaded from YAML:
//
//	loader, err := golaunch.LoadProfile("/etc/golaunch", "profile.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := loader.Load(ctx)
//
// # Supervision
//
// Long-lived processes are kept running by the supervisor, with
// exponential restart backoff, a per-process crash loop breaker, and a
// restart rate limiter:
//
//	s := golaunch.NewSupervisor(l)
//	_ = s.Register(golaunch.ManagedSpec{
//	    Command: golaunch.MustCmd("/usr/bin/modeld"),
//	    Enabled: true,
//	})
//	_ = s.Start(ctx)
//
// # Architecture
//
// The library is organized into focused packages:
//
//   - golaunch (this package): Main entry point and convenience functions
//   - bootstrap: Environment rules and the device boot profile
//   - profile: YAML profile loading and validation
//   - launcher: Core Launcher interface and implementation
//   - supervisor: Managed process set with restart policies
//   - params: Persistent default-if-unset parameter store
//   - resilience: Restart backoff, rate limiting and crash loop breaker
//   - observability: OpenTelemetry metrics and the boot event log
//   - hooks: Extension points for custom behavior
//   - validation: Environment variable validation
//
// # Thread Safety
//
// All types in this package are safe for concurrent use by multiple
// goroutines.
//
// # File I/O
//
// All file operations in this library use
// github.com/victoralfred/gowritter/safepath for secure path handling.
package golaunch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/victoralfred/golaunch/bootstrap"
	"github.com/victoralfred/golaunch/launcher"
	"github.com/victoralfred/golaunch/observability"
	"github.com/victoralfred/golaunch/params"
	"github.com/victoralfred/golaunch/profile"
	"github.com/victoralfred/golaunch/supervisor"
	"github.com/victoralfred/golaunch/validation"
)

// =============================================================================
// Core Types
// =============================================================================

// Launcher is the primary interface for process launching.
// All process launches MUST go through this interface so the boot
// environment is applied consistently.
type Launcher = launcher.Launcher

// Command describes a process to launch. Use Cmd() to create commands.
type Command = launcher.Command

// Result contains the outcome of a completed process.
type Result = launcher.Result

// ResourceUsage contains resource consumption metrics.
type ResourceUsage = launcher.ResourceUsage

// Process is a handle for a long-lived launched process.
type Process = launcher.Process

// Builder creates configured Launcher instances.
type Builder = launcher.Builder

// CommandBuilder creates commands with a fluent interface.
type CommandBuilder = launcher.CommandBuilder

// Priority represents process start priority.
type Priority = launcher.Priority

// Priority constants.
const (
	PriorityLow      = launcher.PriorityLow
	PriorityNormal   = launcher.PriorityNormal
	PriorityHigh     = launcher.PriorityHigh
	PriorityCritical = launcher.PriorityCritical
)

// =============================================================================
// Bootstrap Types
// =============================================================================

// Environment abstracts an environment variable store.
type Environment = bootstrap.Environment

// Profile is an ordered set of environment rules.
type Profile = bootstrap.Profile

// SetRule unconditionally assigns an environment variable.
type SetRule = bootstrap.SetRule

// DefaultRule assigns only when the variable is unset or empty.
type DefaultRule = bootstrap.DefaultRule

// FileRule assigns from a file's contents when the file is non-empty.
type FileRule = bootstrap.FileRule

// ProfileLoader loads boot profiles from YAML files.
type ProfileLoader = profile.Loader

// ProfileConfig is the YAML schema for a boot profile.
type ProfileConfig = profile.Config

// =============================================================================
// Supervision Types
// =============================================================================

// Supervisor keeps registered processes running.
type Supervisor = supervisor.Supervisor

// ManagedSpec describes a supervised process.
type ManagedSpec = supervisor.Spec

// RestartPolicy controls when a process is restarted after exit.
type RestartPolicy = supervisor.RestartPolicy

// Restart policy constants.
const (
	RestartAlways    = supervisor.RestartAlways
	RestartOnFailure = supervisor.RestartOnFailure
	RestartNever     = supervisor.RestartNever
)

// ParamStore is a persistent file-per-key parameter store.
type ParamStore = params.Store

// =============================================================================
// Error Variables
// =============================================================================

// Common errors returned by the library.
var (
	// ErrInvalidCommand indicates an invalid command configuration.
	ErrInvalidCommand = launcher.ErrInvalidCommand

	// ErrTimeout indicates a process exceeded its timeout.
	ErrTimeout = launcher.ErrTimeout

	// ErrStartFailed indicates a process could not be started.
	ErrStartFailed = launcher.ErrStartFailed

	// ErrBootstrapFailed indicates the boot environment could not be applied.
	ErrBootstrapFailed = launcher.ErrBootstrapFailed

	// ErrLauncherShutdown indicates the launcher has been shut down.
	ErrLauncherShutdown = launcher.ErrLauncherShutdown

	// ErrParamNotFound indicates a missing parameter key.
	ErrParamNotFound = params.ErrParamNotFound
)

// =============================================================================
// Status Constants
// =============================================================================

// Process exit status values.
const (
	StatusSuccess  = launcher.StatusSuccess
	StatusError    = launcher.StatusError
	StatusTimeout  = launcher.StatusTimeout
	StatusCanceled = launcher.StatusCanceled
	StatusKilled   = launcher.StatusKilled
)

// =============================================================================
// Factory Functions
// =============================================================================

// New creates a new Launcher that applies the device boot profile.
// This is the simplest way to get started with golaunch.
//
// Example:
//
//	l, err := golaunch.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Shutdown(context.Background())
func New() (Launcher, error) {
	return launcher.NewBuilder().
		WithProfile(bootstrap.DeviceProfile()).
		Build()
}

// NewBuilder creates a new launcher builder.
//
// Example:
//
//	l, err := golaunch.NewBuilder().
//	    WithProfile(golaunch.DeviceProfile()).
//	    WithDefaultTimeout(30 * time.Second).
//	    Build()
func NewBuilder() *Builder {
	return launcher.NewBuilder()
}

// NewSupervisor creates a supervisor driving the given launcher.
func NewSupervisor(l Launcher, opts ...supervisor.Option) *Supervisor {
	return supervisor.New(l, opts...)
}

// OpenParams opens the parameter store rooted at basePath.
func OpenParams(basePath string) (*ParamStore, error) {
	return params.NewStore(basePath)
}

// =============================================================================
// Command Construction
// =============================================================================

// Cmd creates a new CommandBuilder with the specified binary and arguments.
// Call Build() on the returned builder to get the final Command.
//
// Example:
//
//	cmd, err := golaunch.Cmd("/usr/bin/modeld").Build()
func Cmd(binary string, args ...string) *CommandBuilder {
	return launcher.NewCommand(binary, args...)
}

// MustCmd creates a command and panics on error.
// Use only when the binary path is known to be valid.
func MustCmd(binary string, args ...string) *Command {
	return launcher.NewCommand(binary, args...).MustBuild()
}

// =============================================================================
// Bootstrap
// =============================================================================

// DeviceProfile returns the built-in device boot profile: thread caps
// forced to 1, platform defaults for AGNOS_VERSION and PASSIVE, fixed
// staging and fingerprint variables, and the optional navigation token
// file.
func DeviceProfile() *Profile {
	return bootstrap.DeviceProfile()
}

// Bootstrap applies the device boot profile to the current process's
// environment. Applying it again is a no-op; the profile is idempotent.
//
// Example:
//
//	if err := golaunch.Bootstrap(ctx); err != nil {
//	    log.Fatal(err)
//	}
func Bootstrap(ctx context.Context) error {
	return bootstrap.DeviceProfile().Apply(ctx, bootstrap.NewOSEnvironment())
}

// BootstrapProfile applies an arbitrary profile to the current
// process's environment.
func BootstrapProfile(ctx context.Context, p *Profile) error {
	return p.Apply(ctx, bootstrap.NewOSEnvironment())
}

// =============================================================================
// Profile Loading
// =============================================================================

// LoadProfile loads a boot profile from a YAML file.
// The basePath is the directory containing the profile file.
// The profileFile is the name of the file relative to basePath.
//
// Example profile.yaml:
//
//	version: "1.0"
//	env:
//	  set:
//	    - name: OMP_NUM_THREADS
//	      value: "1"
//	  defaults:
//	    - name: PASSIVE
//	      value: "1"
//	  files:
//	    - name: MAPBOX_TOKEN
//	      path: /data/media/0/dp_nav_mapbox_token
func LoadProfile(basePath, profileFile string) (*ProfileLoader, error) {
	return profile.NewLoader(basePath, profileFile)
}

// LoadProfileWithValidation loads a profile with custom validators.
func LoadProfileWithValidation(basePath, profileFile string, opts ...profile.LoaderOption) (*ProfileLoader, error) {
	return profile.NewLoader(basePath, profileFile, opts...)
}

// LoadProfileFromPath loads a profile from a full file path.
// This is a convenience function that splits the path into directory
// and filename.
func LoadProfileFromPath(path string) (*ProfileLoader, error) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	return profile.NewLoader(dir, file)
}

// ExampleProfile returns an example profile configuration equivalent to
// the built-in device profile. Use it as a starting point for custom
// profiles.
func ExampleProfile() *ProfileConfig {
	return profile.ExampleConfig()
}

// =============================================================================
// Validation
// =============================================================================

// ValidateEnvKey validates an environment variable name.
func ValidateEnvKey(key string) error {
	v := validation.NewEnvironmentValidator(nil)
	return v.ValidateVar(key, "")
}

// =============================================================================
// Telemetry Bridging
// =============================================================================

// telemetryAdapter narrows observability.Telemetry to launcher.Telemetry.
type telemetryAdapter struct {
	t observability.Telemetry
}

func (a *telemetryAdapter) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return a.t.StartSpan(ctx, name)
}

func (a *telemetryAdapter) RecordMetric(name string, value float64, labels map[string]string) {
	a.t.RecordMetric(name, value, labels)
}

// AdaptTelemetry adapts an observability.Telemetry to the launcher's
// Telemetry interface.
//
// Example:
//
//	tel, _ := observability.NewTelemetry(observability.DefaultTelemetryConfig())
//	l, _ := golaunch.NewBuilder().
//	    WithTelemetry(golaunch.AdaptTelemetry(tel)).
//	    Build()
func AdaptTelemetry(t observability.Telemetry) launcher.Telemetry {
	return &telemetryAdapter{t: t}
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Run is a convenience function for one-off process runs with the
// device boot profile applied. For repeated runs, create a Launcher
// instance instead.
//
// Example:
//
//	result, err := golaunch.Run(ctx, "/usr/bin/modeld")
func Run(ctx context.Context, binary string, args ...string) (*Result, error) {
	l, err := New()
	if err != nil {
		return nil, err
	}
	defer func() {
		// Shutdown errors are non-critical in cleanup context.
		_ = l.Shutdown(context.Background())
	}()

	cmd, err := Cmd(binary, args...).Build()
	if err != nil {
		return nil, err
	}

	return l.Run(ctx, cmd)
}

// RunWithTimeout is a convenience function with explicit timeout.
func RunWithTimeout(ctx context.Context, timeout time.Duration, binary string, args ...string) (*Result, error) {
	l, err := NewBuilder().
		WithProfile(bootstrap.DeviceProfile()).
		WithDefaultTimeout(timeout).
		Build()
	if err != nil {
		return nil, err
	}
	defer func() {
		// Shutdown errors are non-critical in cleanup context.
		_ = l.Shutdown(context.Background())
	}()

	cmd, err := Cmd(binary, args...).Build()
	if err != nil {
		return nil, err
	}

	return l.Run(ctx, cmd)
}

// =============================================================================
// Version Information
// =============================================================================

// Version returns the library version.
func Version() string {
	return "1.0.0"
}
