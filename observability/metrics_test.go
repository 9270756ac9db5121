package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/victoralfred/golaunch/launcher"
)

func testCommand(name string) *launcher.Command {
	return launcher.NewCommand("/usr/bin/"+name).WithName(name).MustBuild()
}

func TestMetricsRecordRun(t *testing.T) {
	m := NewMetrics()

	m.RecordRun(testCommand("modeld"), &launcher.Result{
		Status:   launcher.StatusSuccess,
		Duration: 100 * time.Millisecond,
		CPUTime:  20 * time.Millisecond,
	}, nil)
	m.RecordRun(testCommand("modeld"), &launcher.Result{
		Status:   launcher.StatusError,
		ExitCode: 1,
		Duration: 50 * time.Millisecond,
	}, errors.New("crashed"))

	snap := m.Snapshot()
	if snap.TotalLaunches != 2 {
		t.Errorf("TotalLaunches = %d, want 2", snap.TotalLaunches)
	}
	if snap.SuccessfulRuns != 1 {
		t.Errorf("SuccessfulRuns = %d, want 1", snap.SuccessfulRuns)
	}
	if snap.FailedRuns != 1 {
		t.Errorf("FailedRuns = %d, want 1", snap.FailedRuns)
	}
	if snap.MinDuration != 50*time.Millisecond {
		t.Errorf("MinDuration = %v", snap.MinDuration)
	}
	if snap.MaxDuration != 100*time.Millisecond {
		t.Errorf("MaxDuration = %v", snap.MaxDuration)
	}
	if snap.SuccessRate() != 50 {
		t.Errorf("SuccessRate() = %v, want 50", snap.SuccessRate())
	}
}

func TestMetricsTimeoutAndKilledCountAsFailed(t *testing.T) {
	m := NewMetrics()

	m.RecordRun(testCommand("modeld"), &launcher.Result{Status: launcher.StatusTimeout}, nil)
	m.RecordRun(testCommand("modeld"), &launcher.Result{Status: launcher.StatusKilled}, nil)

	snap := m.Snapshot()
	if snap.TimeoutRuns != 1 {
		t.Errorf("TimeoutRuns = %d, want 1", snap.TimeoutRuns)
	}
	if snap.KilledRuns != 1 {
		t.Errorf("KilledRuns = %d, want 1", snap.KilledRuns)
	}
	if snap.FailedRuns != 2 {
		t.Errorf("FailedRuns = %d, want 2", snap.FailedRuns)
	}
}

func TestMetricsPerProcessStats(t *testing.T) {
	m := NewMetrics()

	m.RecordRun(testCommand("modeld"), &launcher.Result{
		Status:   launcher.StatusSuccess,
		Duration: 100 * time.Millisecond,
	}, nil)
	m.RecordRestart("modeld")
	m.RecordRestart("modeld")

	snap := m.Snapshot()
	stats, ok := snap.ProcessStats["modeld"]
	if !ok {
		t.Fatal("no stats for modeld")
	}
	if stats.TotalRuns != 1 {
		t.Errorf("TotalRuns = %d, want 1", stats.TotalRuns)
	}
	if stats.Restarts != 2 {
		t.Errorf("Restarts = %d, want 2", stats.Restarts)
	}
	if snap.TotalRestarts != 2 {
		t.Errorf("TotalRestarts = %d, want 2", snap.TotalRestarts)
	}
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordRun(testCommand("modeld"), &launcher.Result{Status: launcher.StatusSuccess}, nil)

	snap := m.Snapshot()
	snap.ProcessStats["modeld"].TotalRuns = 999

	if m.Snapshot().ProcessStats["modeld"].TotalRuns != 1 {
		t.Error("snapshot mutation leaked into the collector")
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordRun(testCommand("modeld"), &launcher.Result{Status: launcher.StatusSuccess}, nil)
	m.RecordRestart("modeld")

	m.Reset()

	snap := m.Snapshot()
	if snap.TotalLaunches != 0 || snap.TotalRestarts != 0 || len(snap.ProcessStats) != 0 {
		t.Errorf("metrics not reset: %+v", snap)
	}
}
