package launcher

import (
	"context"
	"os"
	"sync"
	"syscall"
	"time"
)

// Process is a handle for a long-lived launched process.
type Process struct {
	// LaunchID uniquely identifies this launch.
	LaunchID string

	// Name is the logical process name.
	Name string

	cmd       *Command
	handle    processHandle
	launcher  *launcher
	startedAt time.Time

	waitOnce   sync.Once
	waitResult *Result
	waitErr    error
}

// Pid returns the OS process ID.
func (p *Process) Pid() int {
	return p.handle.Pid()
}

// StartedAt returns when the process was started.
func (p *Process) StartedAt() time.Time {
	return p.startedAt
}

// Uptime returns how long the process has been running.
func (p *Process) Uptime() time.Duration {
	return time.Since(p.startedAt)
}

// Signal sends a signal to the process.
func (p *Process) Signal(sig os.Signal) error {
	return p.handle.Signal(sig)
}

// Kill forcibly terminates the process.
func (p *Process) Kill() error {
	return p.handle.Kill()
}

// Wait blocks until the process exits and returns its result.
// Wait is safe to call from multiple goroutines; all callers receive
// the same result. Post-exit hooks run exactly once.
func (p *Process) Wait(ctx context.Context) (*Result, error) {
	p.waitOnce.Do(func() {
		runResult, runErr := p.handle.Wait()
		result := buildResult(runResult, runErr, p.LaunchID)

		if p.launcher != nil {
			if p.launcher.telemetry != nil {
				p.launcher.telemetry.RecordMetric("launcher.run_duration_ms", float64(result.Duration.Milliseconds()), map[string]string{
					"process": p.Name,
					"status":  result.Status.String(),
				})
			}
			if hookErr := p.launcher.runPostHooks(ctx, p.cmd, result, runErr); hookErr != nil && runErr == nil {
				runErr = hookErr
			}
		}

		p.waitResult = result
		p.waitErr = runErr
	})
	return p.waitResult, p.waitErr
}

// Stop attempts a graceful shutdown: SIGTERM first, then SIGKILL if the
// process has not exited when the context is done or the grace period
// elapses.
func (p *Process) Stop(ctx context.Context, grace time.Duration) (*Result, error) {
	if err := p.Signal(syscall.SIGTERM); err != nil {
		// The process may have already exited; fall through to Wait.
		return p.Wait(ctx)
	}

	done := make(chan struct{})
	go func() {
		_, _ = p.Wait(context.Background())
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		_ = p.Kill()
		<-done
	case <-ctx.Done():
		_ = p.Kill()
		<-done
	}

	return p.Wait(ctx)
}
