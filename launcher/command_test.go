package launcher

import (
	"errors"
	"testing"
	"time"
)

func TestCommandBuilder(t *testing.T) {
	cmd, err := NewCommand("/usr/bin/echo", "hello").
		WithName("greeter").
		WithTimeout(5 * time.Second).
		WithEnv("FOO", "bar").
		WithMetadata("origin", "test").
		WithPriority(PriorityHigh).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if cmd.Name != "greeter" {
		t.Errorf("Name = %q, want greeter", cmd.Name)
	}
	if cmd.Binary != "/usr/bin/echo" {
		t.Errorf("Binary = %q", cmd.Binary)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "hello" {
		t.Errorf("Args = %v", cmd.Args)
	}
	if cmd.Env["FOO"] != "bar" {
		t.Errorf("Env[FOO] = %q", cmd.Env["FOO"])
	}
	if cmd.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cmd.Timeout)
	}
	if cmd.Priority != PriorityHigh {
		t.Errorf("Priority = %v", cmd.Priority)
	}
}

func TestCommandBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder *CommandBuilder
	}{
		{
			name:    "empty binary",
			builder: NewCommand(""),
		},
		{
			name:    "relative binary",
			builder: NewCommand("echo"),
		},
		{
			name:    "relative working dir",
			builder: NewCommand("/usr/bin/echo").WithWorkingDir("tmp"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("Build() expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("error = %v, want ErrInvalidCommand", err)
			}
		})
	}
}

func TestCommandBuilderRejectsNonPositiveTimeout(t *testing.T) {
	_, err := NewCommand("/usr/bin/echo").WithTimeout(0).Build()
	if err == nil {
		t.Fatal("expected error for zero timeout")
	}

	_, err = NewCommand("/usr/bin/echo").WithTimeout(-time.Second).Build()
	if err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestCommandDefaultName(t *testing.T) {
	cmd, err := NewCommand("/usr/bin/env").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cmd.Name != "env" {
		t.Errorf("Name = %q, want env", cmd.Name)
	}
}

func TestCommandClone(t *testing.T) {
	original := NewCommand("/usr/bin/echo", "a", "b").
		WithEnv("KEY", "value").
		WithMetadata("trace", "1").
		MustBuild()

	clone := original.Clone()

	clone.Args[0] = "changed"
	clone.Env["KEY"] = "changed"
	clone.Metadata["trace"] = "changed"

	if original.Args[0] != "a" {
		t.Error("Clone() shares Args with original")
	}
	if original.Env["KEY"] != "value" {
		t.Error("Clone() shares Env with original")
	}
	if original.Metadata["trace"] != "1" {
		t.Error("Clone() shares Metadata with original")
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		priority Priority
		want     string
	}{
		{PriorityLow, "low"},
		{PriorityNormal, "normal"},
		{PriorityHigh, "high"},
		{PriorityCritical, "critical"},
		{Priority(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.priority.String(); got != tt.want {
			t.Errorf("Priority(%d).String() = %q, want %q", tt.priority, got, tt.want)
		}
	}
}
