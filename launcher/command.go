// Package launcher provides the core process launch abstraction.
package launcher

import (
	"fmt"
	"io"
	"path/filepath"
	"time"
)

// Command describes a downstream process to launch.
// Commands are immutable once built.
type Command struct {
	// Name identifies the process for supervision and logging.
	// Defaults to the binary base name.
	Name string

	// Binary is the absolute path to the executable.
	Binary string

	// Args are the command arguments (excluding the binary name).
	Args []string

	// Env holds per-command environment overrides. They are applied on
	// top of the resolved boot environment.
	Env map[string]string

	// WorkingDir is the working directory for the process.
	WorkingDir string

	// Timeout is the maximum execution time for Run.
	// Ignored by Launch: supervised processes are long-lived.
	Timeout time.Duration

	// Stdin provides input to the process.
	Stdin io.Reader

	// Stdout receives standard output. If nil, output is captured (Run)
	// or discarded into the capture buffer (Launch).
	Stdout io.Writer

	// Stderr receives standard error.
	Stderr io.Writer

	// Metadata contains arbitrary key-value pairs for tracing/logging.
	Metadata map[string]string

	// Priority affects start ordering under supervision.
	Priority Priority
}

// Priority represents process start priority.
type Priority int

const (
	// PriorityLow is for background tasks.
	PriorityLow Priority = iota
	// PriorityNormal is the default priority.
	PriorityNormal
	// PriorityHigh is for time-sensitive processes.
	PriorityHigh
	// PriorityCritical is for processes everything else depends on.
	PriorityCritical
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CommandBuilder provides a fluent API for constructing commands.
type CommandBuilder struct {
	cmd *Command
	err error
}

// NewCommand creates a new CommandBuilder with the specified binary and arguments.
func NewCommand(binary string, args ...string) *CommandBuilder {
	return &CommandBuilder{
		cmd: &Command{
			Binary:   binary,
			Args:     args,
			Env:      make(map[string]string),
			Metadata: make(map[string]string),
			Priority: PriorityNormal,
		},
	}
}

// WithName sets the process name used for supervision and logging.
func (b *CommandBuilder) WithName(name string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Name = name
	return b
}

// WithWorkingDir sets the working directory.
func (b *CommandBuilder) WithWorkingDir(dir string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.WorkingDir = dir
	return b
}

// WithTimeout sets the execution timeout for Run.
func (b *CommandBuilder) WithTimeout(timeout time.Duration) *CommandBuilder {
	if b.err != nil {
		return b
	}
	if timeout <= 0 {
		b.err = fmt.Errorf("timeout must be positive")
		return b
	}
	b.cmd.Timeout = timeout
	return b
}

// WithEnv adds an environment override.
func (b *CommandBuilder) WithEnv(key, value string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Env[key] = value
	return b
}

// WithEnvMap adds multiple environment overrides.
func (b *CommandBuilder) WithEnvMap(env map[string]string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	for k, v := range env {
		b.cmd.Env[k] = v
	}
	return b
}

// WithStdin sets the standard input reader.
func (b *CommandBuilder) WithStdin(stdin io.Reader) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Stdin = stdin
	return b
}

// WithStdout sets the standard output writer.
func (b *CommandBuilder) WithStdout(stdout io.Writer) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Stdout = stdout
	return b
}

// WithStderr sets the standard error writer.
func (b *CommandBuilder) WithStderr(stderr io.Writer) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Stderr = stderr
	return b
}

// WithMetadata adds metadata for tracing/logging.
func (b *CommandBuilder) WithMetadata(key, value string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Metadata[key] = value
	return b
}

// WithPriority sets the start priority.
func (b *CommandBuilder) WithPriority(priority Priority) *CommandBuilder {
	if b.err != nil {
		return b
	}
	b.cmd.Priority = priority
	return b
}

// Build validates and returns the command.
func (b *CommandBuilder) Build() (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.cmd.Binary == "" {
		return nil, fmt.Errorf("%w: binary path is required", ErrInvalidCommand)
	}

	if !filepath.IsAbs(b.cmd.Binary) {
		return nil, fmt.Errorf("%w: binary must be an absolute path", ErrInvalidCommand)
	}

	if b.cmd.WorkingDir != "" && !filepath.IsAbs(b.cmd.WorkingDir) {
		return nil, fmt.Errorf("%w: working directory must be an absolute path", ErrInvalidCommand)
	}

	if b.cmd.Name == "" {
		b.cmd.Name = filepath.Base(b.cmd.Binary)
	}

	return b.cmd, nil
}

// MustBuild validates and returns the command, panicking on error.
func (b *CommandBuilder) MustBuild() *Command {
	cmd, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cmd
}

// Clone creates a deep copy of the command.
func (c *Command) Clone() *Command {
	clone := &Command{
		Name:       c.Name,
		Binary:     c.Binary,
		Args:       make([]string, len(c.Args)),
		Env:        make(map[string]string, len(c.Env)),
		WorkingDir: c.WorkingDir,
		Timeout:    c.Timeout,
		Stdin:      c.Stdin,
		Stdout:     c.Stdout,
		Stderr:     c.Stderr,
		Metadata:   make(map[string]string, len(c.Metadata)),
		Priority:   c.Priority,
	}

	copy(clone.Args, c.Args)

	for k, v := range c.Env {
		clone.Env[k] = v
	}

	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}

	return clone
}

// String returns a string representation of the command.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return fmt.Sprintf("%s %v", c.Binary, c.Args)
}
