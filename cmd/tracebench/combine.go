package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tracebench/tracebench/pkg/config"
	"github.com/tracebench/tracebench/pkg/result"
)

var (
	combineInputs   []string
	combineOutput   string
	combineValidate bool
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Combine result files from multiple runs",
	Long: `Merge results files produced by independent suite invocations, for
example baseline and session runs from one host and a privileged daemon
run from another, into a single sorted results file.`,
	RunE: combineResults,
}

func init() {
	rootCmd.AddCommand(combineCmd)
	combineCmd.Flags().StringSliceVarP(&combineInputs, "input", "i", nil,
		"Input results file (repeat for each file)")
	combineCmd.Flags().StringVarP(&combineOutput, "output", "o", "combined_results.json",
		"Output file for the combined results")
	combineCmd.Flags().BoolVar(&combineValidate, "validate", true,
		"Warn when expected scenarios or methods are missing")

	_ = combineCmd.MarkFlagRequired("input")
}

func combineResults(cmd *cobra.Command, args []string) error {
	if len(combineInputs) == 0 {
		return fmt.Errorf("at least one input file is required")
	}

	lists := make([][]result.Aggregate, len(combineInputs))

	g, _ := errgroup.WithContext(cmd.Context())

	for i, path := range combineInputs {
		i, path := i, path
		g.Go(func() error {
			records, err := result.Load(path)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"path":    path,
				"records": len(records),
			}).Info("Loaded results file")

			lists[i] = records

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading input files: %w", err)
	}

	combined := result.Combine(lists...)

	if combineValidate {
		expected := config.ExpectedWorkDurations(config.DefaultScenarios())
		if !result.Validate(log, combined, expected) {
			log.Warn("Combined results are incomplete, writing anyway")
		}
	}

	if err := result.Write(combineOutput, combined); err != nil {
		return fmt.Errorf("writing combined results: %w", err)
	}

	log.WithFields(logrus.Fields{
		"path":    combineOutput,
		"records": len(combined),
	}).Info("Combined results written")

	return nil
}
