package result

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Combine merges record lists produced by independent suite invocations
// into a single sorted list. Records are additive, not keyed: nothing is
// de-duplicated.
func Combine(lists ...[]Aggregate) []Aggregate {
	var total int
	for _, l := range lists {
		total += len(l)
	}

	combined := make([]Aggregate, 0, total)
	for _, l := range lists {
		combined = append(combined, l...)
	}

	Sort(combined)

	return combined
}

// Sort orders records by simulated work duration, then by method rank
// (baseline < session < daemon). The sort is stable so records from
// different input files keep their relative order within a pair.
func Sort(records []Aggregate) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SimulatedWorkUS != records[j].SimulatedWorkUS {
			return records[i].SimulatedWorkUS < records[j].SimulatedWorkUS
		}

		return records[i].Method.Rank() < records[j].Method.Rank()
	})
}

// Validate checks that the combined records cover the expected scenario
// and method sets. Gaps are warned about, never fatal: partial comparative
// data is still worth keeping.
func Validate(log logrus.FieldLogger, records []Aggregate, expectedWorkUS []int) bool {
	workSeen := make(map[int]struct{}, len(records))
	methodSeen := make(map[Method]struct{}, 3)

	for _, r := range records {
		workSeen[r.SimulatedWorkUS] = struct{}{}
		methodSeen[r.Method] = struct{}{}
	}

	ok := true

	for _, want := range expectedWorkUS {
		if _, found := workSeen[want]; !found {
			log.WithField("simulated_work_us", want).Warn("Expected scenario missing from combined results")

			ok = false
		}
	}

	for _, m := range Methods {
		if _, found := methodSeen[m]; !found {
			log.WithField("method", m).Warn("Expected method missing from combined results")

			ok = false
		}
	}

	return ok
}
