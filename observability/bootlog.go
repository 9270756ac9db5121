package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"

	"github.com/victoralfred/golaunch/launcher"
)

// BootLogger records boot and supervision events as JSON lines.
type BootLogger interface {
	// Log records a boot event.
	Log(ctx context.Context, event *BootEvent) error

	// Query reads back recorded events matching the filter.
	Query(ctx context.Context, filter *BootFilter) ([]*BootEvent, error)

	// Close closes the boot logger.
	Close() error
}

// BootEvent represents a boot log entry.
type BootEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ID        string            `json:"id,omitempty"`
	Process   string            `json:"process,omitempty"`
	Profile   string            `json:"profile,omitempty"`
	Status    string            `json:"status,omitempty"`
	Error     string            `json:"error,omitempty"`
	Type      BootEventType     `json:"type"`
	EnvKeys   []string          `json:"env_keys,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	ExitCode  int               `json:"exit_code,omitempty"`
	Pid       int               `json:"pid,omitempty"`
	Restarts  int               `json:"restarts,omitempty"`
}

// BootEventType represents the type of boot event.
type BootEventType string

const (
	// BootEventBootstrapApplied records a boot profile application.
	BootEventBootstrapApplied BootEventType = "bootstrap_applied"

	// BootEventProcessStarted records a process start.
	BootEventProcessStarted BootEventType = "process_started"

	// BootEventProcessExited records a process exit.
	BootEventProcessExited BootEventType = "process_exited"

	// BootEventProcessRestarted records a supervised restart.
	BootEventProcessRestarted BootEventType = "process_restarted"

	// BootEventCrashLoopOpened records a crash loop breaker opening.
	BootEventCrashLoopOpened BootEventType = "crash_loop_opened"

	// BootEventError records an error.
	BootEventError BootEventType = "error"
)

// BootFilter filters boot events.
type BootFilter struct {
	// StartTime is the start of the time range.
	StartTime time.Time

	// EndTime is the end of the time range.
	EndTime time.Time

	// Process filters by process name.
	Process string

	// Type filters by event type.
	Type BootEventType

	// Limit is the maximum number of events to return (0 for all).
	Limit int
}

// BootLogLevel determines what events to log.
type BootLogLevel string

const (
	// BootLogAll logs all events.
	BootLogAll BootLogLevel = "all"

	// BootLogFailures logs only failed exits, crash loops and errors.
	BootLogFailures BootLogLevel = "failures"
)

// BootLogConfig configures the boot logger.
type BootLogConfig struct {
	LogLevel BootLogLevel
	BasePath string
	FilePath string
	Enabled  bool
}

// DefaultBootLogConfig returns default boot log configuration.
func DefaultBootLogConfig() BootLogConfig {
	return BootLogConfig{
		Enabled:  true,
		LogLevel: BootLogAll,
		BasePath: "/data",
		FilePath: "log/boot.log",
	}
}

// fileBootLogger implements BootLogger using gowritter.
type fileBootLogger struct {
	safePath *safepath.SafePath
	config   BootLogConfig
	mu       sync.Mutex
}

// NewFileBootLogger creates a new file-based boot logger.
func NewFileBootLogger(config BootLogConfig) (BootLogger, error) {
	sp, err := safepath.New(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	return &fileBootLogger{
		config:   config,
		safePath: sp,
	}, nil
}

// Log implements BootLogger.Log.
func (l *fileBootLogger) Log(ctx context.Context, event *BootEvent) error {
	if !l.config.Enabled {
		return nil
	}

	if !l.shouldLog(event) {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling boot event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.safePath.AppendFile(l.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing boot log: %w", err)
	}

	return nil
}

// Query implements BootLogger.Query.
func (l *fileBootLogger) Query(ctx context.Context, filter *BootFilter) ([]*BootEvent, error) {
	l.mu.Lock()
	data, err := l.safePath.ReadFile(l.config.FilePath)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("reading boot log: %w", err)
	}

	var events []*BootEvent
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}

		var event BootEvent
		if err := json.Unmarshal(line, &event); err != nil {
			// Skip torn lines from interrupted writes.
			continue
		}

		if !matchesFilter(&event, filter) {
			continue
		}

		events = append(events, &event)
		if filter != nil && filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}

	return events, nil
}

// Close implements BootLogger.Close.
func (l *fileBootLogger) Close() error {
	return nil
}

func (l *fileBootLogger) shouldLog(event *BootEvent) bool {
	switch l.config.LogLevel {
	case BootLogAll:
		return true
	case BootLogFailures:
		if event.Type == BootEventCrashLoopOpened || event.Type == BootEventError {
			return true
		}
		return event.Type == BootEventProcessExited && event.ExitCode != 0
	default:
		return true
	}
}

func matchesFilter(event *BootEvent, filter *BootFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Process != "" && event.Process != filter.Process {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if !filter.StartTime.IsZero() && event.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && event.Timestamp.After(filter.EndTime) {
		return false
	}
	return true
}

// CreateExitEvent creates a boot event from a completed launch.
func CreateExitEvent(cmd *launcher.Command, result *launcher.Result, execErr error) *BootEvent {
	event := &BootEvent{
		Timestamp: time.Now(),
		Type:      BootEventProcessExited,
		Process:   cmd.Name,
		Metadata:  cmd.Metadata,
	}

	if result != nil {
		event.ID = result.LaunchID
		event.Status = result.Status.String()
		event.ExitCode = result.ExitCode
		event.Duration = result.Duration
	}

	if execErr != nil {
		event.Error = execErr.Error()
		event.Type = BootEventError
	}

	return event
}

// NoopBootLogger returns a no-op boot logger.
func NoopBootLogger() BootLogger {
	return &noopBootLogger{}
}

type noopBootLogger struct{}

func (l *noopBootLogger) Log(ctx context.Context, event *BootEvent) error { return nil }
func (l *noopBootLogger) Query(ctx context.Context, filter *BootFilter) ([]*BootEvent, error) {
	return nil, nil
}
func (l *noopBootLogger) Close() error { return nil }
