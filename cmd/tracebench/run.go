package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tracebench/tracebench/pkg/bench"
	"github.com/tracebench/tracebench/pkg/config"
	"github.com/tracebench/tracebench/pkg/procmon"
	"github.com/tracebench/tracebench/pkg/result"
	"github.com/tracebench/tracebench/pkg/session"
	"github.com/tracebench/tracebench/pkg/shell"
	"github.com/tracebench/tracebench/pkg/store"
	"github.com/tracebench/tracebench/pkg/upload"
)

var resultsName string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark suite",
	Long:  `Run every configured scenario under every available instrumentation method.`,
	RunE:  runSuite,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&resultsName, "results-file", "results.json",
		"Name of the results file inside the run directory")
}

func runSuite(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Missing binaries are setup-time fatal, not discovered mid-suite.
	if err := cfg.CheckArtifacts(); err != nil {
		return fmt.Errorf("checking artifacts: %w", err)
	}

	// Setup context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	runID := time.Now().UTC().Format("20060102-150405")
	runDir := filepath.Join(cfg.Benchmark.OutputDir, "run_"+runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	log.WithField("dir", runDir).Info("Run directory created")

	// Create S3 uploader if configured. Fail fast: verify the bucket is
	// writable before spending hours on trials.
	var uploader upload.Uploader

	if cfg.Upload != nil && cfg.Upload.S3 != nil && cfg.Upload.S3.Enabled {
		uploader, err = upload.NewS3Uploader(log, cfg.Upload.S3)
		if err != nil {
			return fmt.Errorf("creating S3 uploader: %w", err)
		}

		if err := uploader.Preflight(ctx); err != nil {
			return fmt.Errorf("S3 upload preflight check failed: %w", err)
		}

		log.Info("S3 upload preflight check passed")
	}

	// Open the history store if configured.
	var history store.Store

	if cfg.History != nil && cfg.History.Enabled {
		history = store.NewStore(log, cfg.History)
		if err := history.Start(ctx); err != nil {
			return fmt.Errorf("starting history store: %w", err)
		}

		defer func() {
			if err := history.Stop(); err != nil {
				log.WithError(err).Warn("Failed to stop history store")
			}
		}()
	}

	sh := shell.NewRunner(log)
	sessions := session.NewManager(log, sh, cfg.Session.ControlBinary, cfg.Session.EventNamespace)
	monitor := procmon.NewMonitor(log)

	suite := bench.NewSuite(log, cfg, sh, sessions, monitor, runDir)

	records, runErr := suite.Run(ctx)

	// Flush whatever was gathered, even on interrupt. A partial results
	// file is recoverable; lost trials are not.
	resultsPath := filepath.Join(runDir, resultsName)

	if err := result.Write(resultsPath, records); err != nil {
		if runErr != nil {
			log.WithError(err).Error("Failed to write results file")

			return runErr
		}

		return fmt.Errorf("writing results: %w", err)
	}

	log.WithFields(logrus.Fields{
		"path":    resultsPath,
		"records": len(records),
	}).Info("Results written")

	bench.LogSummary(log, records)

	if history != nil {
		if err := history.AppendRun(ctx, runID, records); err != nil {
			log.WithError(err).Warn("Failed to append run to history")
		}
	}

	if uploader != nil && runErr == nil {
		if err := uploader.Upload(ctx, runDir); err != nil {
			log.WithError(err).Warn("Failed to upload run directory")
		}
	}

	if runErr != nil {
		return fmt.Errorf("suite aborted: %w", runErr)
	}

	log.Info("Benchmark completed")

	return nil
}
