package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/victoralfred/golaunch/bootstrap"
	internalexec "github.com/victoralfred/golaunch/internal/exec"
)

// mockRunner records run configs and returns canned results.
type mockRunner struct {
	mu       sync.Mutex
	runs     []*internalexec.RunConfig
	starts   []*internalexec.RunConfig
	result   *internalexec.RunResult
	handle   *mockHandle
	runErr   error
	startErr error
}

func (m *mockRunner) Run(ctx context.Context, config *internalexec.RunConfig) (*internalexec.RunResult, error) {
	m.mu.Lock()
	m.runs = append(m.runs, config)
	m.mu.Unlock()
	if m.runErr != nil {
		return nil, m.runErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &internalexec.RunResult{ExitCode: 0, Duration: time.Millisecond}, nil
}

func (m *mockRunner) Start(ctx context.Context, config *internalexec.RunConfig) (processHandle, error) {
	m.mu.Lock()
	m.starts = append(m.starts, config)
	m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	if m.handle != nil {
		return m.handle, nil
	}
	return &mockHandle{pid: 100}, nil
}

func (m *mockRunner) lastRun(t *testing.T) *internalexec.RunConfig {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		t.Fatal("no Run calls recorded")
	}
	return m.runs[len(m.runs)-1]
}

// mockHandle simulates a started process.
type mockHandle struct {
	mu       sync.Mutex
	pid      int
	signals  []os.Signal
	killed   bool
	result   *internalexec.RunResult
	waitErr  error
	exitGate chan struct{} // if set, Wait blocks until closed
}

func (m *mockHandle) Pid() int { return m.pid }

func (m *mockHandle) Signal(sig os.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, sig)
	return nil
}

func (m *mockHandle) Kill() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killed = true
	if m.exitGate != nil {
		select {
		case <-m.exitGate:
		default:
			close(m.exitGate)
		}
	}
	return nil
}

func (m *mockHandle) Wait() (*internalexec.RunResult, error) {
	if m.exitGate != nil {
		<-m.exitGate
	}
	if m.waitErr != nil {
		return nil, m.waitErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &internalexec.RunResult{ExitCode: 0, Duration: time.Millisecond}, nil
}

// recordingTelemetry captures metrics for assertions.
type recordingTelemetry struct {
	mu      sync.Mutex
	spans   []string
	metrics []string
}

func (r *recordingTelemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	r.mu.Lock()
	r.spans = append(r.spans, name)
	r.mu.Unlock()
	return ctx, func() {}
}

func (r *recordingTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	r.metrics = append(r.metrics, name)
	r.mu.Unlock()
}

// envHook injects an environment variable before launch.
type envHook struct {
	key, value string
	postCalls  int
}

func (h *envHook) PreLaunch(ctx context.Context, cmd *Command) (*Command, error) {
	modified := cmd.Clone()
	modified.Env[h.key] = h.value
	return modified, nil
}

func (h *envHook) PostExit(ctx context.Context, cmd *Command, result *Result, err error) error {
	h.postCalls++
	return nil
}

// failingHook always fails pre-launch.
type failingHook struct{}

func (failingHook) PreLaunch(ctx context.Context, cmd *Command) (*Command, error) {
	return nil, fmt.Errorf("hook rejected launch")
}

func (failingHook) PostExit(ctx context.Context, cmd *Command, result *Result, err error) error {
	return nil
}

func newTestLauncher(t *testing.T, runner *mockRunner, opts ...func(*Builder)) Launcher {
	t.Helper()
	b := NewBuilder().withRunner(runner)
	for _, opt := range opts {
		opt(b)
	}
	l, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return l
}

func TestRunAppliesProfileEnvironment(t *testing.T) {
	runner := &mockRunner{}
	l := newTestLauncher(t, runner, func(b *Builder) {
		b.WithProfile(bootstrap.NewProfile("test",
			bootstrap.SetRule{Name: "OMP_NUM_THREADS", Value: "1"},
			bootstrap.DefaultRule{Name: "PASSIVE", Value: "1"},
		))
	})

	cmd := NewCommand("/usr/bin/true").MustBuild()
	result, err := l.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success() {
		t.Errorf("Run() status = %v, want success", result.Status)
	}

	env := runner.lastRun(t).Env
	if !containsEnv(env, "OMP_NUM_THREADS=1") {
		t.Errorf("env missing OMP_NUM_THREADS=1: %v", env)
	}
	if !containsEnv(env, "PASSIVE=1") {
		t.Errorf("env missing PASSIVE=1: %v", env)
	}
}

func TestRunCommandEnvOverridesProfile(t *testing.T) {
	runner := &mockRunner{}
	l := newTestLauncher(t, runner, func(b *Builder) {
		b.WithProfile(bootstrap.NewProfile("test",
			bootstrap.SetRule{Name: "FINGERPRINT", Value: "VOLKSWAGEN SHARAN 2ND GEN"},
		))
	})

	cmd := NewCommand("/usr/bin/true").WithEnv("FINGERPRINT", "OVERRIDE").MustBuild()
	if _, err := l.Run(context.Background(), cmd); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	env := runner.lastRun(t).Env
	if !containsEnv(env, "FINGERPRINT=OVERRIDE") {
		t.Errorf("command env should win over profile: %v", env)
	}
	if containsEnv(env, "FINGERPRINT=VOLKSWAGEN SHARAN 2ND GEN") {
		t.Errorf("profile value should be overridden: %v", env)
	}
}

func TestRunWithoutProfileUsesBaseEnv(t *testing.T) {
	runner := &mockRunner{}
	l := newTestLauncher(t, runner, func(b *Builder) {
		b.WithBaseEnv(map[string]string{"HOME": "/data"})
	})

	cmd := NewCommand("/usr/bin/true").MustBuild()
	if _, err := l.Run(context.Background(), cmd); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !containsEnv(runner.lastRun(t).Env, "HOME=/data") {
		t.Errorf("base env not passed through")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	runner := &mockRunner{result: &internalexec.RunResult{ExitCode: 3}}
	l := newTestLauncher(t, runner)

	result, err := l.Run(context.Background(), NewCommand("/usr/bin/false").MustBuild())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != StatusError {
		t.Errorf("Status = %v, want StatusError", result.Status)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if !result.Failed() {
		t.Error("Failed() = false for non-zero exit")
	}
}

func TestRunPreHookModifiesCommand(t *testing.T) {
	runner := &mockRunner{}
	hook := &envHook{key: "INJECTED", value: "yes"}
	l := newTestLauncher(t, runner, func(b *Builder) {
		b.WithHooks(hook)
	})

	if _, err := l.Run(context.Background(), NewCommand("/usr/bin/true").MustBuild()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !containsEnv(runner.lastRun(t).Env, "INJECTED=yes") {
		t.Errorf("pre-launch hook env not applied")
	}
	if hook.postCalls != 1 {
		t.Errorf("PostExit calls = %d, want 1", hook.postCalls)
	}
}

func TestRunPreHookFailureAborts(t *testing.T) {
	runner := &mockRunner{}
	l := newTestLauncher(t, runner, func(b *Builder) {
		b.WithHooks(failingHook{})
	})

	_, err := l.Run(context.Background(), NewCommand("/usr/bin/true").MustBuild())
	if err == nil {
		t.Fatal("Run() expected hook error")
	}
	if len(runner.runs) != 0 {
		t.Error("process should not start when pre-launch hook fails")
	}
}

func TestRunAfterShutdown(t *testing.T) {
	l := newTestLauncher(t, &mockRunner{})
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_, err := l.Run(context.Background(), NewCommand("/usr/bin/true").MustBuild())
	if !errors.Is(err, ErrLauncherShutdown) {
		t.Errorf("Run() error = %v, want ErrLauncherShutdown", err)
	}

	_, err = l.Launch(context.Background(), NewCommand("/usr/bin/true").MustBuild())
	if !errors.Is(err, ErrLauncherShutdown) {
		t.Errorf("Launch() error = %v, want ErrLauncherShutdown", err)
	}
}

func TestRunRecordsTelemetry(t *testing.T) {
	telemetry := &recordingTelemetry{}
	l := newTestLauncher(t, &mockRunner{}, func(b *Builder) {
		b.WithTelemetry(telemetry)
	})

	if _, err := l.Run(context.Background(), NewCommand("/usr/bin/true").MustBuild()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(telemetry.spans) != 1 || telemetry.spans[0] != "launcher.Run" {
		t.Errorf("spans = %v", telemetry.spans)
	}
	if len(telemetry.metrics) == 0 {
		t.Error("no metrics recorded")
	}
}

func TestLaunchReturnsProcess(t *testing.T) {
	handle := &mockHandle{pid: 4242, result: &internalexec.RunResult{ExitCode: 0}}
	runner := &mockRunner{handle: handle}
	l := newTestLauncher(t, runner)

	proc, err := l.Launch(context.Background(), NewCommand("/usr/bin/sleep", "60").MustBuild())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if proc.Pid() != 4242 {
		t.Errorf("Pid() = %d, want 4242", proc.Pid())
	}
	if proc.LaunchID == "" {
		t.Error("LaunchID is empty")
	}
	if proc.Name != "sleep" {
		t.Errorf("Name = %q, want sleep", proc.Name)
	}

	result, err := proc.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !result.Success() {
		t.Errorf("Wait() status = %v", result.Status)
	}
}

func TestLaunchStartFailure(t *testing.T) {
	runner := &mockRunner{startErr: fmt.Errorf("no such binary")}
	l := newTestLauncher(t, runner)

	_, err := l.Launch(context.Background(), NewCommand("/nonexistent/bin").MustBuild())
	if !errors.Is(err, ErrStartFailed) {
		t.Errorf("Launch() error = %v, want ErrStartFailed", err)
	}
}

func TestProcessWaitIsIdempotent(t *testing.T) {
	hook := &envHook{key: "X", value: "1"}
	handle := &mockHandle{pid: 1, result: &internalexec.RunResult{ExitCode: 0}}
	l := newTestLauncher(t, &mockRunner{handle: handle}, func(b *Builder) {
		b.WithHooks(hook)
	})

	proc, err := l.Launch(context.Background(), NewCommand("/usr/bin/true").MustBuild())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	first, _ := proc.Wait(context.Background())
	second, _ := proc.Wait(context.Background())
	if first != second {
		t.Error("Wait() returned different results across calls")
	}
	if hook.postCalls != 1 {
		t.Errorf("PostExit calls = %d, want 1", hook.postCalls)
	}
}

func TestProcessStopSendsSigterm(t *testing.T) {
	handle := &mockHandle{pid: 1, exitGate: make(chan struct{})}
	l := newTestLauncher(t, &mockRunner{handle: handle})

	proc, err := l.Launch(context.Background(), NewCommand("/usr/bin/sleep", "60").MustBuild())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	// Simulate the process exiting promptly on SIGTERM.
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(handle.exitGate)
	}()

	if _, err := proc.Stop(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()
	if len(handle.signals) != 1 || handle.signals[0] != syscall.SIGTERM {
		t.Errorf("signals = %v, want [SIGTERM]", handle.signals)
	}
	if handle.killed {
		t.Error("process was killed despite exiting within grace period")
	}
}

func TestProcessStopKillsAfterGrace(t *testing.T) {
	handle := &mockHandle{pid: 1, exitGate: make(chan struct{})}
	l := newTestLauncher(t, &mockRunner{handle: handle})

	proc, err := l.Launch(context.Background(), NewCommand("/usr/bin/sleep", "60").MustBuild())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	if _, err := proc.Stop(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()
	if !handle.killed {
		t.Error("process was not killed after grace period")
	}
}

func TestShutdownWaitsForPendingRuns(t *testing.T) {
	runner := &mockRunner{}
	l := newTestLauncher(t, runner)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Run(context.Background(), NewCommand("/usr/bin/true").MustBuild())
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func containsEnv(env []string, entry string) bool {
	for _, e := range env {
		if e == entry {
			return true
		}
	}
	return false
}
