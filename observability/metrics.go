package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/victoralfred/golaunch/launcher"
)

// Metrics provides in-memory launch and supervision metrics.
type Metrics struct {
	processStats    map[string]*ProcessStats
	totalDuration   int64
	minDuration     int64
	maxDuration     int64
	durationCount   int64
	totalCPUTime    int64
	totalLaunches   int64
	successfulRuns  int64
	failedRuns      int64
	timeoutRuns     int64
	killedRuns      int64
	totalRestarts    int64
	crashLoopsOpened int64
	mu               sync.RWMutex
}

// ProcessStats contains per-process statistics.
type ProcessStats struct {
	LastRunAt      time.Time
	Process        string
	LastStatus     string
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	Restarts       int64
	TotalDuration  int64
	AvgDuration    int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		processStats: make(map[string]*ProcessStats),
		minDuration:  -1,
	}
}

// RecordRun records a completed process run.
func (m *Metrics) RecordRun(cmd *launcher.Command, result *launcher.Result, err error) {
	atomic.AddInt64(&m.totalLaunches, 1)

	switch result.Status {
	case launcher.StatusSuccess:
		atomic.AddInt64(&m.successfulRuns, 1)
	case launcher.StatusTimeout:
		atomic.AddInt64(&m.timeoutRuns, 1)
		atomic.AddInt64(&m.failedRuns, 1)
	case launcher.StatusKilled:
		atomic.AddInt64(&m.killedRuns, 1)
		atomic.AddInt64(&m.failedRuns, 1)
	default:
		if err != nil || result.ExitCode != 0 {
			atomic.AddInt64(&m.failedRuns, 1)
		} else {
			atomic.AddInt64(&m.successfulRuns, 1)
		}
	}

	duration := result.Duration.Nanoseconds()
	atomic.AddInt64(&m.totalDuration, duration)
	atomic.AddInt64(&m.durationCount, 1)

	for {
		old := atomic.LoadInt64(&m.minDuration)
		if old >= 0 && duration >= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.minDuration, old, duration) {
			break
		}
	}

	for {
		old := atomic.LoadInt64(&m.maxDuration)
		if duration <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.maxDuration, old, duration) {
			break
		}
	}

	if result.CPUTime > 0 {
		atomic.AddInt64(&m.totalCPUTime, result.CPUTime.Nanoseconds())
	}

	m.updateProcessStats(cmd.Name, result)
}

// RecordRestart records a supervised restart.
func (m *Metrics) RecordRestart(process string) {
	atomic.AddInt64(&m.totalRestarts, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.processStats[process]
	if !ok {
		stats = &ProcessStats{Process: process}
		m.processStats[process] = stats
	}
	stats.Restarts++
}

// RecordCrashLoopOpened records a crash loop breaker opening.
func (m *Metrics) RecordCrashLoopOpened(process string) {
	atomic.AddInt64(&m.crashLoopsOpened, 1)
}

func (m *Metrics) updateProcessStats(process string, result *launcher.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.processStats[process]
	if !ok {
		stats = &ProcessStats{Process: process}
		m.processStats[process] = stats
	}

	stats.TotalRuns++
	stats.TotalDuration += result.Duration.Nanoseconds()
	stats.AvgDuration = stats.TotalDuration / stats.TotalRuns
	stats.LastRunAt = time.Now()
	stats.LastStatus = result.Status.String()

	if result.Status == launcher.StatusSuccess {
		stats.SuccessfulRuns++
	} else {
		stats.FailedRuns++
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalLaunches:    atomic.LoadInt64(&m.totalLaunches),
		SuccessfulRuns:   atomic.LoadInt64(&m.successfulRuns),
		FailedRuns:       atomic.LoadInt64(&m.failedRuns),
		TimeoutRuns:      atomic.LoadInt64(&m.timeoutRuns),
		KilledRuns:       atomic.LoadInt64(&m.killedRuns),
		TotalRestarts:    atomic.LoadInt64(&m.totalRestarts),
		CrashLoopsOpened: atomic.LoadInt64(&m.crashLoopsOpened),
		AvgDuration:      m.avgDuration(),
		MinDuration:      time.Duration(atomic.LoadInt64(&m.minDuration)),
		MaxDuration:      time.Duration(atomic.LoadInt64(&m.maxDuration)),
		AvgCPUTime:       m.avgCPUTime(),
		ProcessStats:     m.getProcessStats(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	ProcessStats     map[string]*ProcessStats
	TotalLaunches    int64
	SuccessfulRuns   int64
	FailedRuns       int64
	TimeoutRuns      int64
	KilledRuns       int64
	TotalRestarts    int64
	CrashLoopsOpened int64
	AvgDuration      time.Duration
	MinDuration      time.Duration
	MaxDuration      time.Duration
	AvgCPUTime       time.Duration
}

// SuccessRate returns the success rate as a percentage.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalLaunches == 0 {
		return 0
	}
	return float64(s.SuccessfulRuns) / float64(s.TotalLaunches) * 100
}

// ErrorRate returns the error rate as a percentage.
func (s MetricsSnapshot) ErrorRate() float64 {
	if s.TotalLaunches == 0 {
		return 0
	}
	return float64(s.FailedRuns) / float64(s.TotalLaunches) * 100
}

func (m *Metrics) avgDuration() time.Duration {
	count := atomic.LoadInt64(&m.durationCount)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalDuration) / count)
}

func (m *Metrics) avgCPUTime() time.Duration {
	count := atomic.LoadInt64(&m.durationCount)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalCPUTime) / count)
}

func (m *Metrics) getProcessStats() map[string]*ProcessStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*ProcessStats, len(m.processStats))
	for k, v := range m.processStats {
		copied := *v
		result[k] = &copied
	}
	return result
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.totalLaunches, 0)
	atomic.StoreInt64(&m.successfulRuns, 0)
	atomic.StoreInt64(&m.failedRuns, 0)
	atomic.StoreInt64(&m.timeoutRuns, 0)
	atomic.StoreInt64(&m.killedRuns, 0)
	atomic.StoreInt64(&m.totalRestarts, 0)
	atomic.StoreInt64(&m.crashLoopsOpened, 0)
	atomic.StoreInt64(&m.totalDuration, 0)
	atomic.StoreInt64(&m.durationCount, 0)
	atomic.StoreInt64(&m.minDuration, -1)
	atomic.StoreInt64(&m.maxDuration, 0)
	atomic.StoreInt64(&m.totalCPUTime, 0)

	m.mu.Lock()
	m.processStats = make(map[string]*ProcessStats)
	m.mu.Unlock()
}
