package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/victoralfred/golaunch/launcher"
)

// orderedHook records the order in which hooks fire.
type orderedHook struct {
	name     string
	priority int
	order    *[]string
}

func (h *orderedHook) Name() string  { return h.name }
func (h *orderedHook) Priority() int { return h.priority }

func (h *orderedHook) PreLaunch(ctx context.Context, cmd *launcher.Command) (*launcher.Command, error) {
	*h.order = append(*h.order, h.name)
	return cmd, nil
}

func (h *orderedHook) PostExit(ctx context.Context, cmd *launcher.Command, result *launcher.Result, err error) error {
	*h.order = append(*h.order, h.name)
	return nil
}

// failingHook fails pre-launch.
type failingHook struct{}

func (failingHook) Name() string  { return "failing" }
func (failingHook) Priority() int { return 0 }

func (failingHook) PreLaunch(ctx context.Context, cmd *launcher.Command) (*launcher.Command, error) {
	return nil, errors.New("rejected")
}

func testCmd(t *testing.T) *launcher.Command {
	t.Helper()
	return launcher.NewCommand("/usr/bin/true").MustBuild()
}

func TestRegistryPriorityOrder(t *testing.T) {
	var order []string
	r := NewRegistry()

	_ = r.Register(&orderedHook{name: "late", priority: 100, order: &order})
	_ = r.Register(&orderedHook{name: "early", priority: 1, order: &order})
	_ = r.Register(&orderedHook{name: "middle", priority: 50, order: &order})

	if _, err := r.PreLaunch(context.Background(), testCmd(t)); err != nil {
		t.Fatalf("PreLaunch() error = %v", err)
	}

	want := "early,middle,late"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestRegistryPreLaunchFailureStopsChain(t *testing.T) {
	var order []string
	r := NewRegistry()

	_ = r.Register(failingHook{})
	_ = r.Register(&orderedHook{name: "after", priority: 10, order: &order})

	_, err := r.PreLaunch(context.Background(), testCmd(t))
	if err == nil {
		t.Fatal("PreLaunch() expected error")
	}
	if !strings.Contains(err.Error(), "failing") {
		t.Errorf("error should name the hook: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("later hooks ran after failure: %v", order)
	}
}

func TestRegistryPostExit(t *testing.T) {
	var order []string
	r := NewRegistry()

	_ = r.Register(&orderedHook{name: "a", priority: 1, order: &order})
	_ = r.Register(&orderedHook{name: "b", priority: 2, order: &order})

	err := r.PostExit(context.Background(), testCmd(t), &launcher.Result{Status: launcher.StatusSuccess}, nil)
	if err != nil {
		t.Fatalf("PostExit() error = %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v", order)
	}
}

func TestRegistryUnregister(t *testing.T) {
	var order []string
	r := NewRegistry()

	_ = r.Register(&orderedHook{name: "keep", priority: 1, order: &order})
	_ = r.Register(&orderedHook{name: "drop", priority: 2, order: &order})
	r.Unregister("drop")

	if _, err := r.PreLaunch(context.Background(), testCmd(t)); err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 || order[0] != "keep" {
		t.Errorf("order = %v", order)
	}
}

func TestRegistrySatisfiesLauncherHook(t *testing.T) {
	var _ launcher.Hook = NewRegistry()
}

func TestLoggingHook(t *testing.T) {
	var lines []string
	hook := NewLoggingHook(func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})

	cmd := testCmd(t)
	if _, err := hook.PreLaunch(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}
	if err := hook.PostExit(context.Background(), cmd, &launcher.Result{Status: launcher.StatusSuccess}, nil); err != nil {
		t.Fatal(err)
	}

	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "/usr/bin/true") {
		t.Errorf("launch line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "status=success") {
		t.Errorf("exit line = %q", lines[1])
	}
}
