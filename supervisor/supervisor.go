// Package supervisor keeps a set of managed processes running. Crashed
// processes are restarted with exponential backoff; processes that keep
// crashing are parked by a crash loop breaker until a cooldown elapses.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/victoralfred/golaunch/launcher"
	"github.com/victoralfred/golaunch/observability"
	"github.com/victoralfred/golaunch/resilience"
)

// Sentinel errors.
var (
	// ErrAlreadyRunning indicates the supervisor was already started.
	ErrAlreadyRunning = errors.New("supervisor already running")

	// ErrNotRunning indicates the supervisor is not running.
	ErrNotRunning = errors.New("supervisor not running")

	// ErrDuplicateProcess indicates a process name is already registered.
	ErrDuplicateProcess = errors.New("process already registered")

	// ErrUnknownProcess indicates the process name is not registered.
	ErrUnknownProcess = errors.New("unknown process")
)

// RestartPolicy controls when a process is restarted after exit.
type RestartPolicy int

const (
	// RestartAlways restarts the process on every exit.
	RestartAlways RestartPolicy = iota
	// RestartOnFailure restarts only after a failed exit.
	RestartOnFailure
	// RestartNever never restarts the process.
	RestartNever
)

// String returns the string representation of the policy.
func (p RestartPolicy) String() string {
	switch p {
	case RestartAlways:
		return "always"
	case RestartOnFailure:
		return "on-failure"
	case RestartNever:
		return "never"
	default:
		return "unknown"
	}
}

// Spec describes a managed process.
type Spec struct {
	// Name identifies the process. Defaults to the command name.
	Name string

	// Command is the command to keep running.
	Command *launcher.Command

	// Enabled controls whether the supervisor starts the process.
	Enabled bool

	// RestartPolicy controls restarts after exit.
	RestartPolicy RestartPolicy

	// HealthyAfter is the minimum run time for an exit to count as
	// healthy rather than as a crash. Defaults to 5 seconds.
	HealthyAfter time.Duration

	// StopGrace is how long Shutdown waits after SIGTERM before
	// killing the process. Defaults to 5 seconds.
	StopGrace time.Duration
}

// State represents the lifecycle state of a managed process.
type State int

const (
	// StateStopped means the process is not running and will not be
	// restarted.
	StateStopped State = iota
	// StateStarting means a launch is in progress.
	StateStarting
	// StateRunning means the process is running.
	StateRunning
	// StateBackoff means the process exited and a restart is pending.
	StateBackoff
	// StateCrashLooped means the crash loop breaker is blocking
	// restarts.
	StateCrashLooped
	// StateStopping means a graceful stop is in progress.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	case StateCrashLooped:
		return "crash-looped"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of a managed process.
type Snapshot struct {
	LastExitAt time.Time
	StartedAt  time.Time
	Name       string
	LastStatus string
	State      State
	Pid        int
	Restarts   int
	LastExit   int
}

// supervisedProcess is the part of launcher.Process the supervisor uses.
type supervisedProcess interface {
	Pid() int
	Uptime() time.Duration
	Wait(ctx context.Context) (*launcher.Result, error)
	Stop(ctx context.Context, grace time.Duration) (*launcher.Result, error)
}

// processLauncher abstracts process launching for the supervisor.
type processLauncher interface {
	Launch(ctx context.Context, cmd *launcher.Command) (supervisedProcess, error)
}

// launcherAdapter adapts launcher.Launcher to processLauncher.
type launcherAdapter struct {
	l launcher.Launcher
}

func (a *launcherAdapter) Launch(ctx context.Context, cmd *launcher.Command) (supervisedProcess, error) {
	return a.l.Launch(ctx, cmd)
}

// managed holds the runtime state of one managed process.
type managed struct {
	spec     *Spec
	state    State
	proc     supervisedProcess
	backoff  resilience.Backoff
	restarts int

	lastExitAt time.Time
	startedAt  time.Time
	lastExit   int
	lastStatus string

	mu sync.Mutex
}

// Supervisor keeps registered processes running.
type Supervisor struct {
	launcher  processLauncher
	breaker   resilience.CrashLoopBreaker
	limiter   resilience.RestartLimiter
	bootLog   observability.BootLogger
	metrics   *observability.Metrics
	backoff   resilience.BackoffConfig
	processes map[string]*managed

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithCrashLoopBreaker sets the crash loop breaker.
func WithCrashLoopBreaker(breaker resilience.CrashLoopBreaker) Option {
	return func(s *Supervisor) { s.breaker = breaker }
}

// WithRestartLimiter sets the restart rate limiter.
func WithRestartLimiter(limiter resilience.RestartLimiter) Option {
	return func(s *Supervisor) { s.limiter = limiter }
}

// WithBootLogger sets the boot event logger.
func WithBootLogger(log observability.BootLogger) Option {
	return func(s *Supervisor) { s.bootLog = log }
}

// WithMetrics sets the in-memory metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Supervisor) { s.metrics = metrics }
}

// WithRestartBackoff sets the restart backoff configuration.
func WithRestartBackoff(config resilience.BackoffConfig) Option {
	return func(s *Supervisor) { s.backoff = config }
}

// New creates a supervisor driving the given launcher.
func New(l launcher.Launcher, opts ...Option) *Supervisor {
	return newSupervisor(&launcherAdapter{l: l}, opts...)
}

func newSupervisor(pl processLauncher, opts ...Option) *Supervisor {
	s := &Supervisor{
		launcher:  pl,
		breaker:   resilience.NewCrashLoopBreaker(resilience.DefaultCrashLoopConfig()),
		limiter:   resilience.NewRestartLimiter(resilience.DefaultRestartLimiterConfig()),
		bootLog:   observability.NoopBootLogger(),
		metrics:   observability.NewMetrics(),
		backoff:   resilience.DefaultRestartBackoffConfig(),
		processes: make(map[string]*managed),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a managed process. Registration is only allowed before
// Start.
func (s *Supervisor) Register(spec Spec) error {
	if spec.Command == nil {
		return fmt.Errorf("spec for %q has no command", spec.Name)
	}
	if spec.Name == "" {
		spec.Name = spec.Command.Name
	}
	if spec.HealthyAfter == 0 {
		spec.HealthyAfter = 5 * time.Second
	}
	if spec.StopGrace == 0 {
		spec.StopGrace = 5 * time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if _, ok := s.processes[spec.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProcess, spec.Name)
	}

	specCopy := spec
	s.processes[spec.Name] = &managed{
		spec:    &specCopy,
		state:   StateStopped,
		backoff: resilience.NewExponentialBackoff(s.backoff),
	}
	return nil
}

// Start launches all enabled processes, highest priority first, and
// begins supervising them. Start returns once all launch loops are
// spawned.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true

	ordered := make([]*managed, 0, len(s.processes))
	for _, m := range s.processes {
		if m.spec.Enabled {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].spec.Command.Priority > ordered[j].spec.Command.Priority
	})
	s.mu.Unlock()

	for _, m := range ordered {
		s.wg.Add(1)
		go s.supervise(ctx, m)
	}
	return nil
}

// supervise runs the start/wait/restart loop for one process.
func (s *Supervisor) supervise(ctx context.Context, m *managed) {
	defer s.wg.Done()

	name := m.spec.Name

	for {
		if s.stopped() || ctx.Err() != nil {
			m.setState(StateStopped)
			return
		}

		if !s.breaker.Allow(name) {
			m.setState(StateCrashLooped)
			s.logEvent(ctx, &observability.BootEvent{
				Timestamp: time.Now(),
				Type:      observability.BootEventCrashLoopOpened,
				Process:   name,
				Restarts:  m.restartCount(),
			})
			s.metrics.RecordCrashLoopOpened(name)
			if !s.sleep(ctx, time.Second) {
				return
			}
			continue
		}

		if err := s.limiter.Wait(ctx, name); err != nil {
			m.setState(StateStopped)
			return
		}

		m.setState(StateStarting)
		proc, err := s.launcher.Launch(ctx, m.spec.Command)
		if err != nil {
			s.breaker.RecordCrash(name)
			s.logEvent(ctx, &observability.BootEvent{
				Timestamp: time.Now(),
				Type:      observability.BootEventError,
				Process:   name,
				Error:     err.Error(),
			})
			if !s.waitBackoff(ctx, m) {
				return
			}
			continue
		}

		m.markStarted(proc)
		s.logEvent(ctx, &observability.BootEvent{
			Timestamp: time.Now(),
			Type:      observability.BootEventProcessStarted,
			Process:   name,
			Pid:       proc.Pid(),
			Restarts:  m.restartCount(),
		})

		result, waitErr := proc.Wait(ctx)
		uptime := proc.Uptime()
		m.markExited(result)

		if result != nil {
			s.metrics.RecordRun(m.spec.Command, result, waitErr)
		}
		s.logEvent(ctx, observability.CreateExitEvent(m.spec.Command, result, waitErr))

		healthy := uptime >= m.spec.HealthyAfter
		if healthy {
			s.breaker.RecordHealthy(name)
			m.backoff.Reset()
		} else {
			s.breaker.RecordCrash(name)
		}

		if !s.shouldRestart(m.spec.RestartPolicy, result) {
			m.setState(StateStopped)
			return
		}

		if s.stopped() || ctx.Err() != nil {
			m.setState(StateStopped)
			return
		}

		m.incrementRestarts()
		s.metrics.RecordRestart(name)
		s.logEvent(ctx, &observability.BootEvent{
			Timestamp: time.Now(),
			Type:      observability.BootEventProcessRestarted,
			Process:   name,
			Restarts:  m.restartCount(),
		})

		if !s.waitBackoff(ctx, m) {
			return
		}
	}
}

// shouldRestart applies the restart policy to an exit result.
func (s *Supervisor) shouldRestart(policy RestartPolicy, result *launcher.Result) bool {
	switch policy {
	case RestartNever:
		return false
	case RestartOnFailure:
		return result == nil || result.Failed()
	default:
		return true
	}
}

// waitBackoff sleeps for the next backoff interval. Returns false if
// supervision should stop.
func (s *Supervisor) waitBackoff(ctx context.Context, m *managed) bool {
	wait := m.backoff.Next()
	if wait == 0 {
		m.setState(StateStopped)
		return false
	}
	m.setState(StateBackoff)
	return s.sleep(ctx, wait)
}

// sleep waits for d unless the supervisor stops first.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Shutdown stops supervision and gracefully stops all running
// processes: SIGTERM first, kill after the per-process grace period.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	close(s.stopCh)

	var stopping []*managed
	for _, m := range s.processes {
		stopping = append(stopping, m)
	}
	s.mu.Unlock()

	var stopWg sync.WaitGroup
	for _, m := range stopping {
		proc := m.currentProcess()
		if proc == nil {
			continue
		}
		m.setState(StateStopping)

		stopWg.Add(1)
		go func(m *managed, proc supervisedProcess) {
			defer stopWg.Done()
			_, _ = proc.Stop(ctx, m.spec.StopGrace)
			m.setState(StateStopped)
		}(m, proc)
	}

	done := make(chan struct{})
	go func() {
		stopWg.Wait()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of every registered process.
func (s *Supervisor) Status() map[string]Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := make(map[string]Snapshot, len(s.processes))
	for name, m := range s.processes {
		status[name] = m.snapshot()
	}
	return status
}

// Metrics returns the supervisor's metrics collector.
func (s *Supervisor) Metrics() *observability.Metrics {
	return s.metrics
}

func (s *Supervisor) logEvent(ctx context.Context, event *observability.BootEvent) {
	// Boot log failures never interfere with supervision.
	_ = s.bootLog.Log(ctx, event)
}

func (m *managed) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *managed) markStarted(proc supervisedProcess) {
	m.mu.Lock()
	m.proc = proc
	m.state = StateRunning
	m.startedAt = time.Now()
	m.mu.Unlock()
}

func (m *managed) markExited(result *launcher.Result) {
	m.mu.Lock()
	m.proc = nil
	m.lastExitAt = time.Now()
	if result != nil {
		m.lastExit = result.ExitCode
		m.lastStatus = result.Status.String()
	}
	m.mu.Unlock()
}

func (m *managed) incrementRestarts() {
	m.mu.Lock()
	m.restarts++
	m.mu.Unlock()
}

func (m *managed) restartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

func (m *managed) currentProcess() supervisedProcess {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc
}

func (m *managed) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Name:       m.spec.Name,
		State:      m.state,
		Restarts:   m.restarts,
		LastExit:   m.lastExit,
		LastStatus: m.lastStatus,
		LastExitAt: m.lastExitAt,
		StartedAt:  m.startedAt,
	}
	if m.proc != nil {
		snap.Pid = m.proc.Pid()
	}
	return snap
}
