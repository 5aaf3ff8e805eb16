package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/tracebench/tracebench/pkg/config"
	"github.com/tracebench/tracebench/pkg/daemon"
	"github.com/tracebench/tracebench/pkg/procmon"
	"github.com/tracebench/tracebench/pkg/result"
	"github.com/tracebench/tracebench/pkg/session"
	"github.com/tracebench/tracebench/pkg/shell"
)

// timingFormat is the format string handed to the timing wrapper.
const timingFormat = "wall_time=%e user_time=%U sys_time=%S max_rss=%M"

// workEnvVar carries the simulated per-call work duration to the workload.
const workEnvVar = "SIMULATED_WORK_US"

// preloadEnvVar injects the session tracer shim into the workload.
const preloadEnvVar = "LD_PRELOAD"

// runWorkload executes the workload under the timing wrapper and returns
// the raw captured output plus the measured wall-clock elapsed time.
func (s *Suite) runWorkload(
	ctx context.Context,
	sc config.Scenario,
	extraEnv map[string]string,
) (*shell.Result, float64, error) {
	env := make(map[string]string, len(extraEnv)+1)
	for k, v := range extraEnv {
		env[k] = v
	}

	// Only set when non-zero: the workload treats unset and "0" the same,
	// and an empty environment keeps the baseline pristine.
	if sc.SimulatedWorkUS > 0 {
		env[workEnvVar] = strconv.Itoa(sc.SimulatedWorkUS)
	}

	spec := shell.Spec{
		Command: []string{
			s.cfg.Workload.TimeCommand,
			"-f", timingFormat,
			s.cfg.Workload.Binary,
			strconv.Itoa(sc.Iterations),
		},
		Env:     env,
		Timeout: s.cfg.Benchmark.TrialTimeout.Std(),
	}

	start := time.Now()

	res, err := s.sh.Run(ctx, spec)
	if err != nil {
		return nil, 0, fmt.Errorf("running workload: %w", err)
	}

	elapsed := time.Since(start).Seconds()

	if res.ExitCode != 0 {
		return nil, 0, fmt.Errorf("workload exited with status %d: %s", res.ExitCode, res.Stderr)
	}

	return res, elapsed, nil
}

// baseTrial assembles the fields every method shares from the workload and
// timing wrapper output.
func baseTrial(sc config.Scenario, method result.Method, res *shell.Result) result.Trial {
	t := parseTimingOutput(res.Stderr)

	return result.Trial{
		Scenario:         sc.Name,
		Method:           method,
		Iterations:       sc.Iterations,
		SimulatedWorkUS:  sc.SimulatedWorkUS,
		WallTimeS:        t.WallS,
		UserCPUS:         t.UserS,
		SystemCPUS:       t.SystemS,
		MaxRSSKB:         t.MaxRSSKB,
		AvgTimePerCallNS: parseWorkloadOutput(res.Stdout),
	}
}

// runBaselineTrial measures the workload with no instrumentation attached.
func (s *Suite) runBaselineTrial(ctx context.Context, sc config.Scenario) (result.Trial, error) {
	res, _, err := s.runWorkload(ctx, sc, nil)
	if err != nil {
		return result.Trial{}, err
	}

	return baseTrial(sc, result.MethodBaseline, res), nil
}

// runSessionTrial measures the workload under the session-based tracer.
// The session's cost shows up in the workload's own elapsed time, so no
// out-of-band tracer sampling happens here.
func (s *Suite) runSessionTrial(ctx context.Context, sc config.Scenario, runIdx int) (result.Trial, error) {
	name := session.Name(sc.SimulatedWorkUS, runIdx)
	traceDir := filepath.Join(s.runDir, name)

	if err := s.sessions.Create(ctx, name, traceDir); err != nil {
		return result.Trial{}, err
	}

	// From here on the session exists and must be torn down even when the
	// workload fails.
	defer s.sessions.Destroy(ctx, name)

	if err := s.sessions.EnableEvents(ctx); err != nil {
		return result.Trial{}, err
	}

	if err := s.sessions.Start(ctx); err != nil {
		return result.Trial{}, err
	}

	res, _, err := s.runWorkload(ctx, sc, map[string]string{
		preloadEnvVar: s.cfg.Session.ShimLibrary,
	})

	s.sessions.Stop(ctx)
	s.sessions.Destroy(ctx, name)

	if err != nil {
		// Still reclaim whatever the aborted session wrote.
		if _, mErr := s.sessions.MeasureAndRemove(traceDir); mErr != nil {
			s.log.WithError(mErr).Debug("Failed to clean aborted session trace")
		}

		return result.Trial{}, err
	}

	trial := baseTrial(sc, result.MethodSession, res)

	size, err := s.sessions.MeasureAndRemove(traceDir)
	if err != nil {
		s.log.WithError(err).Warn("Failed to measure session trace")
	} else {
		sizeMB := float64(size) / (1024 * 1024)
		trial.TraceSizeMB = &sizeMB

		s.log.WithFields(logrus.Fields{
			"session": name,
			"trace":   units.HumanSize(float64(size)),
		}).Debug("Session trace collected")
	}

	return trial, nil
}

// runDaemonTrial measures the workload while the kernel-probe tracer
// daemon is attached. Daemon resource figures are best-effort: a failed
// PID lookup skips sampling but keeps the trial.
func (s *Suite) runDaemonTrial(ctx context.Context, sc config.Scenario, runIdx int) (result.Trial, error) {
	if len(s.cfg.Daemon.Command) == 0 {
		return result.Trial{}, fmt.Errorf("daemon command not configured")
	}

	tracePath := filepath.Join(s.runDir, fmt.Sprintf("daemon_%dus_r%d.txt", sc.SimulatedWorkUS, runIdx))

	h, err := daemon.Launch(s.log, s.cfg.Daemon.Command, tracePath)
	if err != nil {
		return result.Trial{}, err
	}

	// The daemon is privileged and detached: whatever happens below, it
	// must be signalled down before the next trial.
	defer h.Terminate(s.cfg.Daemon.GracePeriod.Std())

	if err := h.WaitReady(ctx, s.cfg.Daemon.Warmup.Std()); err != nil {
		return result.Trial{}, fmt.Errorf("daemon warm-up: %w", err)
	}

	pid, before := s.sampleDaemon()

	res, elapsed, err := s.runWorkload(ctx, sc, nil)
	if err != nil {
		return result.Trial{}, err
	}

	trial := baseTrial(sc, result.MethodDaemon, res)

	if pid != 0 && before != nil {
		if after, err := s.monitor.Snapshot(pid); err != nil {
			s.log.WithError(err).Debug("Daemon post-trial sample failed")
		} else {
			cpu := procmon.CPUPercent(before, after, elapsed)
			trial.TracerCPUPercent = &cpu

			memKB := int64(after.RSSBytes / 1024)
			trial.TracerMemoryKB = &memKB
		}
	}

	h.Terminate(s.cfg.Daemon.GracePeriod.Std())

	size, events, err := h.CollectTrace()
	if err != nil {
		s.log.WithError(err).Warn("Failed to collect daemon trace")
	}

	sizeMB := float64(size) / (1024 * 1024)
	trial.TraceSizeMB = &sizeMB
	trial.EventsCaptured = &events

	s.log.WithFields(logrus.Fields{
		"trace":  units.HumanSize(float64(size)),
		"events": events,
	}).Debug("Daemon trace collected")

	return trial, nil
}

// sampleDaemon resolves the tracer process and takes the pre-trial
// resource snapshot. Lookup failure downgrades sampling to "skipped".
func (s *Suite) sampleDaemon() (int32, *procmon.Sample) {
	if s.cfg.Daemon.ProcessName == "" {
		return 0, nil
	}

	pid, err := s.monitor.FindByName(s.cfg.Daemon.ProcessName)
	if err != nil {
		s.log.WithError(err).Debug("Daemon process lookup failed, skipping resource sampling")

		return 0, nil
	}

	sample, err := s.monitor.Snapshot(pid)
	if err != nil {
		s.log.WithError(err).Debug("Daemon pre-trial sample failed")

		return 0, nil
	}

	return pid, sample
}
