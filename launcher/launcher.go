package launcher

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/victoralfred/golaunch/bootstrap"
	"github.com/victoralfred/golaunch/internal/envutil"
	internalexec "github.com/victoralfred/golaunch/internal/exec"
)

// Launcher is the single abstraction for starting downstream processes.
// All process launches MUST go through this interface so that the boot
// environment is applied consistently.
type Launcher interface {
	// Run launches a process and waits for it to exit.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Launch starts a long-lived process and returns a handle for it.
	Launch(ctx context.Context, cmd *Command) (*Process, error)

	// Shutdown gracefully shuts down the launcher, waiting for pending
	// Run calls to complete. Launched processes are not stopped; that is
	// the supervisor's responsibility.
	Shutdown(ctx context.Context) error
}

// Hook defines extension points around process launch.
type Hook interface {
	// PreLaunch is called before a process is started. It may return a
	// modified command.
	PreLaunch(ctx context.Context, cmd *Command) (*Command, error)

	// PostExit is called after a process exits.
	PostExit(ctx context.Context, cmd *Command, result *Result, err error) error
}

// Telemetry provides observability.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string) (context.Context, func())
	// RecordMetric records a metric.
	RecordMetric(name string, value float64, labels map[string]string)
}

// processHandle abstracts a started OS process.
type processHandle interface {
	Pid() int
	Signal(sig os.Signal) error
	Kill() error
	Wait() (*internalexec.RunResult, error)
}

// runner abstracts the internal process runner.
type runner interface {
	Run(ctx context.Context, config *internalexec.RunConfig) (*internalexec.RunResult, error)
	Start(ctx context.Context, config *internalexec.RunConfig) (processHandle, error)
}

// defaultRunner adapts the internal runner to the runner interface.
type defaultRunner struct {
	runner *internalexec.Runner
}

func (r *defaultRunner) Run(ctx context.Context, config *internalexec.RunConfig) (*internalexec.RunResult, error) {
	return r.runner.Run(ctx, config)
}

func (r *defaultRunner) Start(ctx context.Context, config *internalexec.RunConfig) (processHandle, error) {
	return r.runner.Start(ctx, config)
}

// launcher is the default implementation.
type launcher struct {
	profile        *bootstrap.Profile
	runner         runner
	telemetry      Telemetry
	hooks          []Hook
	baseEnv        map[string]string
	wg             sync.WaitGroup
	mu             sync.RWMutex // protects shutdown check and wg.Add
	defaultTimeout time.Duration
	shutdown       int32
}

// Builder creates configured Launcher instances.
type Builder struct {
	profile        *bootstrap.Profile
	runner         runner
	telemetry      Telemetry
	hooks          []Hook
	baseEnv        map[string]string
	defaultTimeout time.Duration
}

// NewBuilder creates a new launcher builder.
func NewBuilder() *Builder {
	return &Builder{
		defaultTimeout: 30 * time.Second,
	}
}

// WithProfile sets the boot profile applied to every launched process.
func (b *Builder) WithProfile(profile *bootstrap.Profile) *Builder {
	b.profile = profile
	return b
}

// WithHooks adds launch hooks.
func (b *Builder) WithHooks(hooks ...Hook) *Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// WithTelemetry sets the telemetry provider.
func (b *Builder) WithTelemetry(telemetry Telemetry) *Builder {
	b.telemetry = telemetry
	return b
}

// WithBaseEnv sets the base environment the boot profile is resolved
// against. Defaults to the minimal safe environment.
func (b *Builder) WithBaseEnv(env map[string]string) *Builder {
	b.baseEnv = env
	return b
}

// WithInheritedEnv uses a snapshot of the current process environment as
// the base environment.
func (b *Builder) WithInheritedEnv() *Builder {
	b.baseEnv = envutil.Snapshot()
	return b
}

// WithDefaultTimeout sets the default timeout for Run.
func (b *Builder) WithDefaultTimeout(timeout time.Duration) *Builder {
	b.defaultTimeout = timeout
	return b
}

// withRunner overrides the process runner. Used by tests.
func (b *Builder) withRunner(r runner) *Builder {
	b.runner = r
	return b
}

// Build creates the launcher.
func (b *Builder) Build() (Launcher, error) {
	r := b.runner
	if r == nil {
		r = &defaultRunner{runner: internalexec.NewRunner()}
	}

	baseEnv := b.baseEnv
	if baseEnv == nil {
		baseEnv = envutil.MinimalEnvironment()
	}

	return &launcher{
		profile:        b.profile,
		runner:         r,
		telemetry:      b.telemetry,
		hooks:          b.hooks,
		baseEnv:        baseEnv,
		defaultTimeout: b.defaultTimeout,
	}, nil
}

// resolveEnv builds the full environment for a command: boot profile
// resolved over the base environment, command overrides last.
func (l *launcher) resolveEnv(ctx context.Context, cmd *Command) (map[string]string, error) {
	resolved := l.baseEnv
	if l.profile != nil {
		var err error
		resolved, err = l.profile.Resolve(ctx, l.baseEnv)
		if err != nil {
			return nil, NewBootstrapError(cmd.Name, err)
		}
	}
	return envutil.MergeEnvironment(resolved, cmd.Env), nil
}

// Run launches a process and waits for completion.
func (l *launcher) Run(ctx context.Context, cmd *Command) (*Result, error) {
	// Use mutex to ensure shutdown check and wg.Add are atomic.
	// This prevents a race where Shutdown starts wg.Wait() between our
	// check and Add.
	l.mu.RLock()
	if atomic.LoadInt32(&l.shutdown) == 1 {
		l.mu.RUnlock()
		return nil, ErrLauncherShutdown
	}
	l.wg.Add(1)
	l.mu.RUnlock()

	defer l.wg.Done()

	if l.telemetry != nil {
		var endSpan func()
		ctx, endSpan = l.telemetry.StartSpan(ctx, "launcher.Run")
		defer endSpan()
	}

	launchID := uuid.New().String()

	cmd, err := l.runPreHooks(ctx, cmd)
	if err != nil {
		return nil, err
	}

	env, err := l.resolveEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = l.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config := &internalexec.RunConfig{
		Binary:     cmd.Binary,
		Args:       cmd.Args,
		Env:        envutil.BuildEnv(env),
		WorkingDir: cmd.WorkingDir,
		Stdin:      cmd.Stdin,
		Stdout:     cmd.Stdout,
		Stderr:     cmd.Stderr,
	}

	runResult, runErr := l.runner.Run(execCtx, config)
	if execCtx.Err() == context.DeadlineExceeded {
		runErr = NewTimeoutError(cmd.Name, timeout.String())
	}

	result := buildResult(runResult, runErr, launchID)

	if l.telemetry != nil {
		l.telemetry.RecordMetric("launcher.run_duration_ms", float64(result.Duration.Milliseconds()), map[string]string{
			"process":  cmd.Name,
			"status":   result.Status.String(),
			"exitcode": strconv.Itoa(result.ExitCode),
		})
	}

	if hookErr := l.runPostHooks(ctx, cmd, result, runErr); hookErr != nil {
		return result, hookErr
	}

	return result, runErr
}

// Launch starts a long-lived process.
func (l *launcher) Launch(ctx context.Context, cmd *Command) (*Process, error) {
	l.mu.RLock()
	if atomic.LoadInt32(&l.shutdown) == 1 {
		l.mu.RUnlock()
		return nil, ErrLauncherShutdown
	}
	l.mu.RUnlock()

	if l.telemetry != nil {
		var endSpan func()
		ctx, endSpan = l.telemetry.StartSpan(ctx, "launcher.Launch")
		defer endSpan()
	}

	launchID := uuid.New().String()

	cmd, err := l.runPreHooks(ctx, cmd)
	if err != nil {
		return nil, err
	}

	env, err := l.resolveEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}

	config := &internalexec.RunConfig{
		Binary:     cmd.Binary,
		Args:       cmd.Args,
		Env:        envutil.BuildEnv(env),
		WorkingDir: cmd.WorkingDir,
		Stdin:      cmd.Stdin,
		Stdout:     cmd.Stdout,
		Stderr:     cmd.Stderr,
	}

	handle, err := l.runner.Start(ctx, config)
	if err != nil {
		return nil, NewStartError(cmd.Name, err)
	}

	if l.telemetry != nil {
		l.telemetry.RecordMetric("launcher.launches_total", 1, map[string]string{
			"process": cmd.Name,
		})
	}

	return &Process{
		LaunchID:  launchID,
		Name:      cmd.Name,
		cmd:       cmd,
		handle:    handle,
		launcher:  l,
		startedAt: time.Now(),
	}, nil
}

// Shutdown gracefully shuts down the launcher.
func (l *launcher) Shutdown(ctx context.Context) error {
	// Acquire write lock to prevent new Run calls from starting
	l.mu.Lock()
	atomic.StoreInt32(&l.shutdown, 1)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runPreHooks runs pre-launch hooks.
// Hooks are read-only after launcher creation, so no lock needed.
func (l *launcher) runPreHooks(ctx context.Context, cmd *Command) (*Command, error) {
	hooks := l.hooks
	if len(hooks) == 0 {
		return cmd, nil
	}

	current := cmd
	for _, hook := range hooks {
		modified, err := hook.PreLaunch(ctx, current)
		if err != nil {
			return nil, err
		}
		current = modified
	}
	return current, nil
}

// runPostHooks runs post-exit hooks.
func (l *launcher) runPostHooks(ctx context.Context, cmd *Command, result *Result, execErr error) error {
	hooks := l.hooks
	if len(hooks) == 0 {
		return nil
	}

	for _, hook := range hooks {
		if err := hook.PostExit(ctx, cmd, result, execErr); err != nil {
			return err
		}
	}
	return nil
}

// buildResult builds a Result from the internal run result.
func buildResult(runResult *internalexec.RunResult, runErr error, launchID string) *Result {
	result := &Result{
		LaunchID: launchID,
	}

	if runResult == nil {
		result.Status = StatusError
		return result
	}

	result.ExitCode = runResult.ExitCode
	result.Stdout = runResult.Stdout
	result.Stderr = runResult.Stderr
	result.Duration = runResult.Duration

	if runResult.Signal != 0 {
		result.Signal = runResult.Signal.String()
	}

	if runResult.ProcessState != nil {
		result.CPUTime = runResult.ProcessState.UserTime + runResult.ProcessState.SystemTime
		result.ResourceUsage = &ResourceUsage{
			UserTime:   runResult.ProcessState.UserTime,
			SystemTime: runResult.ProcessState.SystemTime,
		}
	}

	switch {
	case runErr == nil && runResult.ExitCode == 0:
		result.Status = StatusSuccess
	case errors.Is(runErr, ErrTimeout):
		result.Status = StatusTimeout
	case errors.Is(runErr, context.Canceled):
		result.Status = StatusCanceled
	case runResult.Signal != 0:
		result.Status = StatusKilled
	default:
		result.Status = StatusError
	}

	return result
}
