// Package bench orchestrates the measurement suite: scenarios crossed with
// instrumentation methods, repeated trials per pair, and statistical
// aggregation into a persisted result set.
package bench

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tracebench/tracebench/pkg/config"
	"github.com/tracebench/tracebench/pkg/procmon"
	"github.com/tracebench/tracebench/pkg/result"
	"github.com/tracebench/tracebench/pkg/session"
	"github.com/tracebench/tracebench/pkg/shell"
	"github.com/tracebench/tracebench/pkg/stats"
)

// Suite drives one complete benchmark execution. Trials run strictly one
// after another: the daemon tracer needs exclusive attachment, so nothing
// here is parallel.
type Suite struct {
	log      logrus.FieldLogger
	cfg      *config.Config
	sh       shell.Runner
	sessions session.Manager
	monitor  procmon.Monitor
	runDir   string
}

// NewSuite creates a Suite writing trace scratch files and results under
// runDir. The directory is explicit caller-provided state, never derived
// from the wall clock inside the suite.
func NewSuite(
	log logrus.FieldLogger,
	cfg *config.Config,
	sh shell.Runner,
	sessions session.Manager,
	monitor procmon.Monitor,
	runDir string,
) *Suite {
	return &Suite{
		log:      log.WithField("component", "suite"),
		cfg:      cfg,
		sh:       sh,
		sessions: sessions,
		monitor:  monitor,
		runDir:   runDir,
	}
}

// trialFunc runs one trial of one method for a scenario.
type trialFunc func(ctx context.Context, sc config.Scenario, runIdx int) (result.Trial, error)

// methodRunner pairs a method with its trial function and a precondition.
type methodRunner struct {
	method result.Method
	ready  func() error
	run    trialFunc
}

// Run executes the full suite and returns the aggregates accumulated so
// far. On interrupt the partial set is returned together with the context
// error so the caller can still flush it.
func (s *Suite) Run(ctx context.Context) ([]result.Aggregate, error) {
	runners := []methodRunner{
		{
			method: result.MethodBaseline,
			ready:  func() error { return nil },
			run: func(ctx context.Context, sc config.Scenario, _ int) (result.Trial, error) {
				return s.runBaselineTrial(ctx, sc)
			},
		},
		{
			method: result.MethodSession,
			ready: func() error {
				if s.cfg.Session.ShimLibrary == "" {
					return fmt.Errorf("session.shim_library not configured")
				}

				return nil
			},
			run: s.runSessionTrial,
		},
		{
			method: result.MethodDaemon,
			ready: func() error {
				if len(s.cfg.Daemon.Command) == 0 {
					return fmt.Errorf("daemon.command not configured")
				}

				return nil
			},
			run: s.runDaemonTrial,
		},
	}

	var records []result.Aggregate

	for _, sc := range s.cfg.Benchmark.Scenarios {
		s.log.WithFields(logrus.Fields{
			"scenario":   sc.Name,
			"work_us":    sc.SimulatedWorkUS,
			"iterations": sc.Iterations,
		}).Info("Starting scenario")

		for _, r := range runners {
			if err := ctx.Err(); err != nil {
				s.log.Info("Suite interrupted, flushing partial results")

				return records, err
			}

			agg, err := s.runPair(ctx, sc, r)
			if err != nil {
				if ctx.Err() != nil {
					return records, ctx.Err()
				}

				// One failing method never aborts the suite: partial
				// comparative data is still valuable.
				s.log.WithError(err).WithFields(logrus.Fields{
					"scenario": sc.Name,
					"method":   r.method,
				}).Error("Method failed, skipping pair")

				continue
			}

			records = append(records, agg)
		}
	}

	return records, nil
}

// runPair executes the configured repetitions of one (scenario, method)
// pair and aggregates the surviving trials.
func (s *Suite) runPair(ctx context.Context, sc config.Scenario, r methodRunner) (result.Aggregate, error) {
	if err := r.ready(); err != nil {
		return result.Aggregate{}, err
	}

	log := s.log.WithFields(logrus.Fields{
		"scenario": sc.Name,
		"method":   r.method,
	})
	log.WithField("runs", s.cfg.Benchmark.Runs).Info("Running trials")

	trials := make([]result.Trial, 0, s.cfg.Benchmark.Runs)

	for i := 0; i < s.cfg.Benchmark.Runs; i++ {
		// Interrupts are honored between trials, never mid-trial.
		if err := ctx.Err(); err != nil {
			return result.Aggregate{}, err
		}

		trial, err := r.run(ctx, sc, i)
		if err != nil {
			if ctx.Err() != nil {
				return result.Aggregate{}, ctx.Err()
			}

			// A failed trial is excluded from aggregation, nothing more.
			log.WithError(err).WithField("run", i).Warn("Trial failed, excluding from aggregate")

			continue
		}

		trials = append(trials, trial)

		if (i+1)%10 == 0 || i+1 == s.cfg.Benchmark.Runs {
			log.WithField("completed", i+1).Debug("Trial progress")
		}
	}

	agg, err := stats.Aggregate(trials)
	if err != nil {
		return result.Aggregate{}, fmt.Errorf("aggregating %s/%s: %w", sc.Name, r.method, err)
	}

	log.WithFields(logrus.Fields{
		"avg_ns":    agg.AvgTimePerCallNS,
		"margin_95": agg.Confidence95Margin,
		"runs":      agg.NumRuns,
	}).Info("Pair aggregated")

	return agg, nil
}

// LogSummary logs the overhead of each tracer method against its
// scenario's baseline. This is the comparison the suite exists to make.
func LogSummary(log logrus.FieldLogger, records []result.Aggregate) {
	baselines := make(map[string]result.Aggregate, len(records))

	for _, r := range records {
		if r.Method == result.MethodBaseline {
			baselines[r.Scenario] = r
		}
	}

	for _, r := range records {
		if r.Method == result.MethodBaseline {
			continue
		}

		base, ok := baselines[r.Scenario]
		if !ok || base.AvgTimePerCallNS <= 0 {
			continue
		}

		overheadNS := r.AvgTimePerCallNS - base.AvgTimePerCallNS
		overheadPct := (r.AvgTimePerCallNS/base.AvgTimePerCallNS - 1) * 100

		log.WithFields(logrus.Fields{
			"scenario":     r.Scenario,
			"method":       r.Method,
			"overhead_ns":  overheadNS,
			"overhead_pct": overheadPct,
		}).Info("Overhead vs baseline")
	}
}
