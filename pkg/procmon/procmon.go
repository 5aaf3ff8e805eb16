// Package procmon samples resource usage of a running process at points in
// time and derives CPU utilization over an elapsed wall interval. Figures
// are best-effort telemetry for the tracer daemon, not correctness-critical
// measurements: a vanished process yields an error the caller downgrades.
package procmon

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

// Sample is a point-in-time snapshot of one process's resource counters.
// CPU times are cumulative seconds since process start.
type Sample struct {
	RSSBytes   uint64
	UserCPUS   float64
	SystemCPUS float64
}

// Monitor samples per-process resource accounting. The interface exists so
// the daemon trial runner can be tested without a live tracer process.
type Monitor interface {
	// FindByName returns the PID of the newest process whose name
	// contains name. Returns an error when no process matches.
	FindByName(name string) (int32, error)

	// Snapshot reads the current resource counters of pid. Fails when
	// the process has exited or its accounting is unreadable.
	Snapshot(pid int32) (*Sample, error)
}

// Compile-time interface check.
var _ Monitor = (*monitor)(nil)

type monitor struct {
	log logrus.FieldLogger
}

// NewMonitor creates a Monitor backed by OS process accounting.
func NewMonitor(log logrus.FieldLogger) Monitor {
	return &monitor{
		log: log.WithField("component", "procmon"),
	}
}

// FindByName returns the PID of the newest matching process.
func (m *monitor) FindByName(name string) (int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	var (
		found      int32
		foundStart int64 = -1
	)

	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			continue
		}

		if !strings.Contains(pname, name) {
			continue
		}

		created, err := p.CreateTime()
		if err != nil {
			created = 0
		}

		if created >= foundStart {
			found = p.Pid
			foundStart = created
		}
	}

	if foundStart < 0 {
		return 0, fmt.Errorf("no process matching %q", name)
	}

	return found, nil
}

// Snapshot reads the current resource counters of pid.
func (m *monitor) Snapshot(pid int32) (*Sample, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("opening process %d: %w", pid, err)
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("reading memory info for %d: %w", pid, err)
	}

	times, err := p.Times()
	if err != nil {
		return nil, fmt.Errorf("reading cpu times for %d: %w", pid, err)
	}

	return &Sample{
		RSSBytes:   mem.RSS,
		UserCPUS:   times.User,
		SystemCPUS: times.System,
	}, nil
}

// CPUPercent derives the process's CPU utilization over an elapsed wall
// interval from two snapshots: 100 * delta(user+system) / elapsed. Only
// well-defined for a positive interval; otherwise 0.
func CPUPercent(before, after *Sample, elapsedSeconds float64) float64 {
	if before == nil || after == nil || elapsedSeconds <= 0 {
		return 0
	}

	delta := (after.UserCPUS - before.UserCPUS) + (after.SystemCPUS - before.SystemCPUS)
	if delta < 0 {
		// Counter went backwards: the PID was recycled mid-trial.
		return 0
	}

	return 100 * delta / elapsedSeconds
}
