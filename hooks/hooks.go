// Package hooks provides extension points for the process launch
// lifecycle.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/victoralfred/golaunch/launcher"
)

// Hook defines extension points for the launch lifecycle.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// PreLaunchHook is called before a process is launched.
type PreLaunchHook interface {
	Hook
	PreLaunch(ctx context.Context, cmd *launcher.Command) (*launcher.Command, error)
}

// PostExitHook is called after a process exits.
type PostExitHook interface {
	Hook
	PostExit(ctx context.Context, cmd *launcher.Command, result *launcher.Result, err error) error
}

// ErrorHook is called when a launch fails.
type ErrorHook interface {
	Hook
	OnError(ctx context.Context, cmd *launcher.Command, err error) error
}

// Registry manages hook registration and invocation.
type Registry struct {
	preLaunch  []PreLaunchHook
	postExit   []PostExitHook
	errorHooks []ErrorHook
	mu         sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		preLaunch:  make([]PreLaunchHook, 0),
		postExit:   make([]PostExitHook, 0),
		errorHooks: make([]ErrorHook, 0),
	}
}

// Register adds a hook to the registry. A hook may implement more than
// one lifecycle interface.
func (r *Registry) Register(hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := hook.(PreLaunchHook); ok {
		r.preLaunch = append(r.preLaunch, h)
		sort.Slice(r.preLaunch, func(i, j int) bool {
			return r.preLaunch[i].Priority() < r.preLaunch[j].Priority()
		})
	}

	if h, ok := hook.(PostExitHook); ok {
		r.postExit = append(r.postExit, h)
		sort.Slice(r.postExit, func(i, j int) bool {
			return r.postExit[i].Priority() < r.postExit[j].Priority()
		})
	}

	if h, ok := hook.(ErrorHook); ok {
		r.errorHooks = append(r.errorHooks, h)
		sort.Slice(r.errorHooks, func(i, j int) bool {
			return r.errorHooks[i].Priority() < r.errorHooks[j].Priority()
		})
	}

	return nil
}

// Unregister removes a hook by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preLaunch = removeByNamePre(r.preLaunch, name)
	r.postExit = removeByNamePost(r.postExit, name)
	r.errorHooks = removeByNameError(r.errorHooks, name)
}

// PreLaunch runs all pre-launch hooks in priority order. The registry
// itself satisfies launcher.Hook.
func (r *Registry) PreLaunch(ctx context.Context, cmd *launcher.Command) (*launcher.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := cmd
	for _, hook := range r.preLaunch {
		modified, err := hook.PreLaunch(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
		current = modified
	}
	return current, nil
}

// PostExit runs all post-exit hooks in priority order.
func (r *Registry) PostExit(ctx context.Context, cmd *launcher.Command, result *launcher.Result, execErr error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.postExit {
		if err := hook.PostExit(ctx, cmd, result, execErr); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

// RunError runs all error hooks.
func (r *Registry) RunError(ctx context.Context, cmd *launcher.Command, execErr error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.errorHooks {
		if err := hook.OnError(ctx, cmd, execErr); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

// Helper functions for removing hooks by name
func removeByNamePre(hooks []PreLaunchHook, name string) []PreLaunchHook {
	result := make([]PreLaunchHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNamePost(hooks []PostExitHook, name string) []PostExitHook {
	result := make([]PostExitHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNameError(hooks []ErrorHook, name string) []ErrorHook {
	result := make([]ErrorHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

// LoggingHook is a built-in hook that logs launches.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

func (h *LoggingHook) PreLaunch(ctx context.Context, cmd *launcher.Command) (*launcher.Command, error) {
	h.logger("Launching: %s %v", cmd.Binary, cmd.Args)
	return cmd, nil
}

func (h *LoggingHook) PostExit(ctx context.Context, cmd *launcher.Command, result *launcher.Result, err error) error {
	if err != nil {
		h.logger("Launch failed: %s - %v", cmd.Binary, err)
	} else {
		h.logger("Process exited: %s - status=%s duration=%v", cmd.Binary, result.Status, result.Duration)
	}
	return nil
}
