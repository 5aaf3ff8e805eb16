// Package stats reduces repeated benchmark trials into confidence-bounded
// summary statistics for one (scenario, method) pair.
package stats

import (
	"errors"
	"math"

	"github.com/tracebench/tracebench/pkg/result"
)

// ErrEmptyInput is returned when aggregation is requested with no trials.
// Callers skip the pair entirely instead of emitting a record.
var ErrEmptyInput = errors.New("no trials to aggregate")

// zCritical95 is the two-sided z value for a 95% confidence interval.
const zCritical95 = 1.96

// Aggregate reduces trials sharing a (scenario, method) pair into a single
// record. The identity fields are taken from the first trial; all trials
// are assumed to share them. The reduction is order-independent.
func Aggregate(trials []result.Trial) (result.Aggregate, error) {
	if len(trials) == 0 {
		return result.Aggregate{}, ErrEmptyInput
	}

	first := trials[0]
	agg := result.Aggregate{
		Scenario:        first.Scenario,
		Method:          first.Method,
		Iterations:      first.Iterations,
		SimulatedWorkUS: first.SimulatedWorkUS,
		NumRuns:         len(trials),
	}

	avgTimes := make([]float64, len(trials))
	wallTimes := make([]float64, len(trials))

	var userSum, sysSum, rssSum float64

	for i, t := range trials {
		avgTimes[i] = t.AvgTimePerCallNS
		wallTimes[i] = t.WallTimeS
		userSum += t.UserCPUS
		sysSum += t.SystemCPUS
		rssSum += float64(t.MaxRSSKB)
	}

	n := float64(len(trials))

	agg.AvgTimePerCallNS = mean(avgTimes)
	agg.WallTimeS = mean(wallTimes)
	agg.UserCPUS = userSum / n
	agg.SystemCPUS = sysSum / n
	agg.MaxRSSKB = int64(rssSum / n)

	agg.AvgTimeStddev = sampleStddev(avgTimes)
	agg.WallTimeStddev = sampleStddev(wallTimes)
	agg.AvgTimeMin, agg.AvgTimeMax = minMax(avgTimes)
	agg.Confidence95Margin = confidenceMargin(agg.AvgTimeStddev, len(trials))

	// Optional fields average over the trials where they were measured.
	// An all-nil column stays nil: "not measured" is not zero.
	agg.TraceSizeMB = meanPresent(trials, func(t result.Trial) *float64 { return t.TraceSizeMB })
	agg.TracerCPUPercent = meanPresent(trials, func(t result.Trial) *float64 { return t.TracerCPUPercent })
	agg.TracerMemoryKB = meanPresentInt(trials, func(t result.Trial) *int64 { return t.TracerMemoryKB })
	agg.EventsCaptured = meanPresentInt(trials, func(t result.Trial) *int64 { return t.EventsCaptured })

	return agg, nil
}

// mean returns the arithmetic mean of values. Callers guarantee len > 0.
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStddev returns the sample standard deviation (N-1 denominator).
// A single sample has no estimable spread, so it is defined as 0.
func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)

	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}

	return math.Sqrt(sq / float64(len(values)-1))
}

// minMax returns the minimum and maximum of values.
func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	return lo, hi
}

// confidenceMargin returns the half-width of the 95% confidence interval
// around the sample mean: 1.96 * stddev / sqrt(n). Zero for a single run.
func confidenceMargin(stddev float64, n int) float64 {
	if n < 2 {
		return 0
	}

	return zCritical95 * stddev / math.Sqrt(float64(n))
}

// meanPresent averages an optional float64 column over the trials where it
// is present. Returns nil when no trial carries a value.
func meanPresent(trials []result.Trial, get func(result.Trial) *float64) *float64 {
	var (
		sum   float64
		count int
	)

	for _, t := range trials {
		if v := get(t); v != nil {
			sum += *v
			count++
		}
	}

	if count == 0 {
		return nil
	}

	m := sum / float64(count)

	return &m
}

// meanPresentInt averages an optional int64 column over the trials where it
// is present, truncating the mean. Returns nil when no trial carries a value.
func meanPresentInt(trials []result.Trial, get func(result.Trial) *int64) *int64 {
	var (
		sum   float64
		count int
	)

	for _, t := range trials {
		if v := get(t); v != nil {
			sum += float64(*v)
			count++
		}
	}

	if count == 0 {
		return nil
	}

	m := int64(sum / float64(count))

	return &m
}
