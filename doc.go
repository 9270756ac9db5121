// Package golaunch provides boot environment initialization and managed
// process launch for embedded devices.
//
// GoLaunch centralizes all process invocation behind a minimal API,
// banning direct os/exec usage elsewhere. It guarantees every launched
// process a deterministic boot environment: numeric library thread caps
// forced to safe values, platform defaults filled in where unset, and
// device identity variables sourced from fixed literals and optional
// on-disk files.
//
// # Key Features
//
//   - Single launch abstraction with timeouts and cancellation
//   - Declarative boot profiles, built in or loaded from YAML
//   - Long-lived process supervision with restart policies
//   - Exponential restart backoff and per-process crash loop breaker
//   - OpenTelemetry integration for metrics and tracing
//   - JSON-lines boot event log for post-mortem analysis
//
// # Basic Usage
//
//	l, err := golaunch.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Shutdown(context.Background())
//
//	cmd, _ := golaunch.Cmd("/usr/bin/modeld").Build()
//	result, err := l.Run(ctx, cmd)
//
// # With a Profile File
//
//	loader, _ := golaunch.LoadProfile("/etc/golaunch", "profile.yaml")
//	p, _ := loader.Load(ctx)
//
//	l, _ := golaunch.NewBuilder().
//	    WithProfile(p).
//	    WithDefaultTimeout(30 * time.Second).
//	    Build()
//
// # Environment Model
//
// Profiles apply three kinds of rules in order: unconditional
// assignments, default assignments that only fill unset or empty
// variables, and file-sourced assignments that take effect when the
// source file exists and is non-empty. Applying a profile twice yields
// the same environment.
//
// # File I/O
//
// All file operations use github.com/victoralfred/gowritter/safepath
// for secure path handling. Direct use of os.ReadFile, os.WriteFile,
// os.Open, os.Create, or io/ioutil is prohibited within this library.
//
// # Package Structure
//
//   - golaunch: Main entry point and convenience functions
//   - bootstrap: Environment rules and the device boot profile
//   - profile: YAML profile loading and validation
//   - launcher: Core Launcher interface and implementation
//   - supervisor: Managed process set with restart policies
//   - params: Persistent default-if-unset parameter store
//   - resilience: Restart backoff, rate limiting and crash loop breaker
//   - observability: OpenTelemetry metrics and the boot event log
//   - hooks: Extension points for custom behavior
//   - validation: Environment variable validation
//   - config: Configuration management
package golaunch
