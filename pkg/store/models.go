package store

import (
	"time"

	"github.com/tracebench/tracebench/pkg/result"
)

// Record is one persisted aggregate row. A run is identified by the
// caller-supplied run ID, so repeated benchmarks of the same scenario
// stay distinguishable across time.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"index;not null" json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	Scenario        string `gorm:"index;not null" json:"scenario"`
	Method          string `gorm:"index;not null" json:"method"`
	SimulatedWorkUS int    `json:"simulated_work_us"`
	Iterations      int    `json:"iterations"`
	NumRuns         int    `json:"num_runs"`

	AvgTimePerCallNS   float64 `json:"avg_time_per_call_ns"`
	AvgTimeStddev      float64 `json:"avg_time_stddev"`
	AvgTimeMin         float64 `json:"avg_time_min"`
	AvgTimeMax         float64 `json:"avg_time_max"`
	Confidence95Margin float64 `json:"confidence_95_margin"`

	WallTimeS     float64 `json:"wall_time_s"`
	WallTimeStddev float64 `json:"wall_time_stddev"`
	UserCPUS      float64 `json:"user_cpu_s"`
	SystemCPUS    float64 `json:"system_cpu_s"`
	MaxRSSKB      int64   `json:"max_rss_kb"`

	TraceSizeMB      *float64 `json:"trace_size_mb,omitempty"`
	TracerCPUPercent *float64 `json:"tracer_cpu_percent,omitempty"`
	TracerMemoryKB   *int64   `json:"tracer_memory_kb,omitempty"`
	EventsCaptured   *int64   `json:"events_captured,omitempty"`
}

// newRecord maps an aggregate into its storage row.
func newRecord(runID string, a result.Aggregate) Record {
	return Record{
		RunID:              runID,
		Scenario:           a.Scenario,
		Method:             string(a.Method),
		SimulatedWorkUS:    a.SimulatedWorkUS,
		Iterations:         a.Iterations,
		NumRuns:            a.NumRuns,
		AvgTimePerCallNS:   a.AvgTimePerCallNS,
		AvgTimeStddev:      a.AvgTimeStddev,
		AvgTimeMin:         a.AvgTimeMin,
		AvgTimeMax:         a.AvgTimeMax,
		Confidence95Margin: a.Confidence95Margin,
		WallTimeS:          a.WallTimeS,
		WallTimeStddev:     a.WallTimeStddev,
		UserCPUS:           a.UserCPUS,
		SystemCPUS:         a.SystemCPUS,
		MaxRSSKB:           a.MaxRSSKB,
		TraceSizeMB:        a.TraceSizeMB,
		TracerCPUPercent:   a.TracerCPUPercent,
		TracerMemoryKB:     a.TracerMemoryKB,
		EventsCaptured:     a.EventsCaptured,
	}
}
