// Package exec provides the internal process invocation wrapper.
// This is the ONLY package in the entire library that imports os/exec.
// All process launches MUST go through this package.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Runner starts processes using os/exec.
// This is the sole abstraction for process invocation.
type Runner struct {
	// minimalEnv contains the minimal safe environment variables.
	minimalEnv []string
}

// NewRunner creates a new process runner.
func NewRunner() *Runner {
	return &Runner{
		minimalEnv: []string{
			"PATH=/usr/bin:/bin",
			"LANG=C.UTF-8",
			"LC_ALL=C.UTF-8",
		},
	}
}

// RunConfig contains configuration for launching a process.
type RunConfig struct {
	// Binary is the absolute path to the executable.
	Binary string

	// Args are the process arguments (excluding the binary name).
	Args []string

	// Env is the environment variables. If nil, minimalEnv is used.
	Env []string

	// WorkingDir is the working directory.
	WorkingDir string

	// Stdin provides input to the process.
	Stdin io.Reader

	// Stdout receives standard output. If nil, output is captured.
	Stdout io.Writer

	// Stderr receives standard error. If nil, output is captured.
	Stderr io.Writer

	// SysProcAttr contains OS-specific process attributes.
	SysProcAttr *syscall.SysProcAttr
}

// RunResult contains the result of a completed process.
type RunResult struct {
	// ExitCode is the process exit code.
	ExitCode int

	// Signal is the signal that terminated the process, if any.
	Signal syscall.Signal

	// Stdout contains captured standard output (if not streaming).
	Stdout []byte

	// Stderr contains captured standard error (if not streaming).
	Stderr []byte

	// Duration is the wall clock time of execution.
	Duration time.Duration

	// ProcessState contains the OS process state.
	ProcessState *ProcessState
}

// ProcessState contains OS-level process information.
type ProcessState struct {
	Pid        int
	UserTime   time.Duration
	SystemTime time.Duration
}

// Handle represents a started process that has not yet been waited on.
type Handle struct {
	cmd       *exec.Cmd
	stdoutBuf *bytes.Buffer
	stderrBuf *bytes.Buffer
	startedAt time.Time
}

// Pid returns the OS process ID.
func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Signal sends a signal to the process.
func (h *Handle) Signal(sig os.Signal) error {
	if h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return h.cmd.Process.Signal(sig)
}

// Kill forcibly terminates the process.
func (h *Handle) Kill() error {
	if h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return h.cmd.Process.Kill()
}

// Wait blocks until the process exits and returns its result.
// The returned error is the wait error from os/exec; a non-zero exit
// code is reported through the result, not the error.
func (h *Handle) Wait() (*RunResult, error) {
	err := h.cmd.Wait()
	result := buildRunResult(h.cmd, h.stdoutBuf, h.stderrBuf, time.Since(h.startedAt))
	if _, ok := err.(*exec.ExitError); ok {
		err = nil
	}
	return result, err
}

// Start launches a process without waiting for it to exit.
// Unlike Run, Start does not require a context deadline: supervised
// processes are expected to be long-lived.
func (r *Runner) Start(ctx context.Context, config *RunConfig) (*Handle, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cmd, stdoutBuf, stderrBuf := r.buildCmd(ctx, config)

	h := &Handle{
		cmd:       cmd,
		stdoutBuf: stdoutBuf,
		stderrBuf: stderrBuf,
		startedAt: time.Now(),
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return h, nil
}

// Run launches a process and waits for it to exit.
// The context MUST have a deadline set for timeout enforcement.
func (r *Runner) Run(ctx context.Context, config *RunConfig) (*RunResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Verify context has a deadline
	if _, ok := ctx.Deadline(); !ok {
		return nil, fmt.Errorf("context must have a deadline for timeout enforcement")
	}

	cmd, stdoutBuf, stderrBuf := r.buildCmd(ctx, config)

	start := time.Now()
	err := cmd.Run()
	result := buildRunResult(cmd, stdoutBuf, stderrBuf, time.Since(start))

	// As with Handle.Wait, a non-zero exit code is reported through the
	// result rather than the error.
	if _, ok := err.(*exec.ExitError); ok {
		err = nil
	}

	return result, err
}

// buildCmd constructs the underlying exec.Cmd. The returned buffers are
// non-nil only when the corresponding stream is captured rather than
// streamed.
func (r *Runner) buildCmd(ctx context.Context, config *RunConfig) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	// Binary and Args are validated by the command builder before
	// reaching this point. CommandContext with separate binary/args
	// (not shell execution) prevents command injection.
	// #nosec G204 -- Binary path and arguments are validated upstream
	cmd := exec.CommandContext(ctx, config.Binary, config.Args...)

	if len(config.Env) > 0 {
		cmd.Env = config.Env
	} else {
		cmd.Env = r.minimalEnv
	}

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	if config.Stdin != nil {
		cmd.Stdin = config.Stdin
	}

	var stdoutBuf, stderrBuf *bytes.Buffer
	if config.Stdout != nil {
		cmd.Stdout = config.Stdout
	} else {
		stdoutBuf = &bytes.Buffer{}
		cmd.Stdout = stdoutBuf
	}

	if config.Stderr != nil {
		cmd.Stderr = config.Stderr
	} else {
		stderrBuf = &bytes.Buffer{}
		cmd.Stderr = stderrBuf
	}

	if config.SysProcAttr != nil {
		cmd.SysProcAttr = config.SysProcAttr
	} else {
		cmd.SysProcAttr = defaultSysProcAttr()
	}

	return cmd, stdoutBuf, stderrBuf
}

func buildRunResult(cmd *exec.Cmd, stdoutBuf, stderrBuf *bytes.Buffer, duration time.Duration) *RunResult {
	result := &RunResult{
		Duration: duration,
	}

	if stdoutBuf != nil {
		result.Stdout = stdoutBuf.Bytes()
	}
	if stderrBuf != nil {
		result.Stderr = stderrBuf.Bytes()
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.ProcessState = &ProcessState{
			Pid:        cmd.ProcessState.Pid(),
			UserTime:   cmd.ProcessState.UserTime(),
			SystemTime: cmd.ProcessState.SystemTime(),
		}

		if sig, ok := extractSignal(cmd.ProcessState.Sys()); ok {
			result.Signal = sig
		}
	}

	return result
}
