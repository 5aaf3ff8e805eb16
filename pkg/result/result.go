package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Method identifies the instrumentation strategy used for a trial.
type Method string

const (
	// MethodBaseline runs the workload with no instrumentation attached.
	MethodBaseline Method = "baseline"

	// MethodSession runs the workload under the session-based userspace
	// tracer, injected via LD_PRELOAD.
	MethodSession Method = "session"

	// MethodDaemon runs the workload while the kernel-probe tracer daemon
	// is attached externally.
	MethodDaemon Method = "daemon"
)

// Methods lists all methods in execution order. The order is fixed:
// later methods assume no other tracer is attached when they set up.
var Methods = []Method{MethodBaseline, MethodSession, MethodDaemon}

// Rank returns the sort rank of a method. Unknown methods sort last.
func (m Method) Rank() int {
	switch m {
	case MethodBaseline:
		return 0
	case MethodSession:
		return 1
	case MethodDaemon:
		return 2
	default:
		return 99
	}
}

// Trial is the raw measurement from a single workload execution under one
// method. It is constructed fully populated by the trial runner and never
// mutated afterwards.
//
// Optional fields are pointers: nil means "not measured", which is distinct
// from a measured zero.
type Trial struct {
	Scenario        string  `json:"scenario"`
	Method          Method  `json:"method"`
	Iterations      int     `json:"iterations"`
	SimulatedWorkUS int     `json:"simulated_work_us"`
	WallTimeS       float64 `json:"wall_time_s"`
	UserCPUS        float64 `json:"user_cpu_s"`
	SystemCPUS      float64 `json:"system_cpu_s"`
	MaxRSSKB        int64   `json:"max_rss_kb"`
	AvgTimePerCallNS float64 `json:"avg_time_per_call_ns"`

	// Populated by the tracer methods only.
	TraceSizeMB *float64 `json:"trace_size_mb,omitempty"`

	// Populated by the daemon method only, and only when the daemon
	// process could be resolved and sampled.
	TracerCPUPercent *float64 `json:"tracer_cpu_percent,omitempty"`
	TracerMemoryKB   *int64   `json:"tracer_memory_kb,omitempty"`
	EventsCaptured   *int64   `json:"events_captured,omitempty"`
}

// Aggregate is the statistical reduction of repeated trials for one
// (scenario, method) pair. Timing fields hold means across trials; the
// spread statistics describe the per-call timing distribution.
type Aggregate struct {
	Scenario        string  `json:"scenario"`
	Method          Method  `json:"method"`
	Iterations      int     `json:"iterations"`
	SimulatedWorkUS int     `json:"simulated_work_us"`
	WallTimeS       float64 `json:"wall_time_s"`
	UserCPUS        float64 `json:"user_cpu_s"`
	SystemCPUS      float64 `json:"system_cpu_s"`
	MaxRSSKB        int64   `json:"max_rss_kb"`
	AvgTimePerCallNS float64 `json:"avg_time_per_call_ns"`

	TraceSizeMB      *float64 `json:"trace_size_mb,omitempty"`
	TracerCPUPercent *float64 `json:"tracer_cpu_percent,omitempty"`
	TracerMemoryKB   *int64   `json:"tracer_memory_kb,omitempty"`
	EventsCaptured   *int64   `json:"events_captured,omitempty"`

	NumRuns            int     `json:"num_runs"`
	AvgTimeStddev      float64 `json:"avg_time_stddev"`
	AvgTimeMin         float64 `json:"avg_time_min"`
	AvgTimeMax         float64 `json:"avg_time_max"`
	WallTimeStddev     float64 `json:"wall_time_stddev"`
	Confidence95Margin float64 `json:"confidence_95_margin"`
}

// Set is the ordered collection of aggregates produced by one suite run.
type Set struct {
	GeneratedAt time.Time   `json:"-"`
	Records     []Aggregate `json:"-"`
}

// Append adds an aggregate to the set, preserving insertion order.
func (s *Set) Append(a Aggregate) {
	s.Records = append(s.Records, a)
}

// Write persists the set as a JSON array of flat records, matching the
// format consumed by the report renderer and the combine command.
func Write(path string, records []Aggregate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}

	return nil
}

// Load reads a JSON results file written by Write (or by an independent
// parallel invocation of the suite).
func Load(path string) ([]Aggregate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}

	var records []Aggregate
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}

	return records, nil
}
