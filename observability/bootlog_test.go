package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/victoralfred/golaunch/launcher"
)

func newTestBootLogger(t *testing.T) BootLogger {
	t.Helper()
	logger, err := NewFileBootLogger(BootLogConfig{
		Enabled:  true,
		LogLevel: BootLogAll,
		BasePath: t.TempDir(),
		FilePath: "boot.log",
	})
	if err != nil {
		t.Fatalf("NewFileBootLogger() error = %v", err)
	}
	return logger
}

func TestBootLogRoundTrip(t *testing.T) {
	logger := newTestBootLogger(t)
	ctx := context.Background()

	events := []*BootEvent{
		{Timestamp: time.Now(), Type: BootEventBootstrapApplied, Profile: "device", EnvKeys: []string{"OMP_NUM_THREADS"}},
		{Timestamp: time.Now(), Type: BootEventProcessStarted, Process: "modeld", Pid: 42},
		{Timestamp: time.Now(), Type: BootEventProcessExited, Process: "modeld", ExitCode: 1, Status: "error"},
	}

	for _, e := range events {
		if err := logger.Log(ctx, e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	got, err := logger.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query() returned %d events, want 3", len(got))
	}
	if got[0].Type != BootEventBootstrapApplied || got[0].Profile != "device" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Pid != 42 {
		t.Errorf("Pid = %d, want 42", got[1].Pid)
	}
}

func TestBootLogQueryFilters(t *testing.T) {
	logger := newTestBootLogger(t)
	ctx := context.Background()

	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventProcessStarted, Process: "modeld"})
	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventProcessStarted, Process: "loggerd"})
	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventProcessExited, Process: "modeld"})

	byProcess, err := logger.Query(ctx, &BootFilter{Process: "modeld"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(byProcess) != 2 {
		t.Errorf("Query(Process=modeld) = %d events, want 2", len(byProcess))
	}

	byType, err := logger.Query(ctx, &BootFilter{Type: BootEventProcessExited})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(byType) != 1 {
		t.Errorf("Query(Type=exited) = %d events, want 1", len(byType))
	}

	limited, err := logger.Query(ctx, &BootFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Query(Limit=1) = %d events, want 1", len(limited))
	}
}

func TestBootLogFailuresLevel(t *testing.T) {
	logger, err := NewFileBootLogger(BootLogConfig{
		Enabled:  true,
		LogLevel: BootLogFailures,
		BasePath: t.TempDir(),
		FilePath: "boot.log",
	})
	if err != nil {
		t.Fatalf("NewFileBootLogger() error = %v", err)
	}
	ctx := context.Background()

	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventProcessStarted, Process: "modeld"})
	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventProcessExited, Process: "modeld", ExitCode: 0})
	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventProcessExited, Process: "modeld", ExitCode: 1})
	_ = logger.Log(ctx, &BootEvent{Timestamp: time.Now(), Type: BootEventCrashLoopOpened, Process: "modeld"})

	got, err := logger.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("failures level logged %d events, want 2", len(got))
	}
}

func TestBootLogDisabled(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileBootLogger(BootLogConfig{
		Enabled:  false,
		BasePath: dir,
		FilePath: "boot.log",
	})
	if err != nil {
		t.Fatalf("NewFileBootLogger() error = %v", err)
	}

	if err := logger.Log(context.Background(), &BootEvent{Type: BootEventError}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	if _, err := logger.Query(context.Background(), nil); err == nil {
		t.Error("Query() should fail when nothing was written")
	}
}

func TestCreateExitEvent(t *testing.T) {
	cmd := launcher.NewCommand("/usr/bin/modeld").WithName("modeld").MustBuild()
	result := &launcher.Result{
		LaunchID: "launch-1",
		Status:   launcher.StatusError,
		ExitCode: 2,
		Duration: time.Second,
	}

	event := CreateExitEvent(cmd, result, nil)
	if event.Type != BootEventProcessExited {
		t.Errorf("Type = %v", event.Type)
	}
	if event.Process != "modeld" || event.ID != "launch-1" || event.ExitCode != 2 {
		t.Errorf("event = %+v", event)
	}

	withErr := CreateExitEvent(cmd, result, errors.New("boom"))
	if withErr.Type != BootEventError || withErr.Error != "boom" {
		t.Errorf("event with error = %+v", withErr)
	}
}
