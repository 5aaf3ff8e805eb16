package config

// Scenario is an immutable workload configuration: how much simulated work
// each call performs and how many calls one trial makes.
type Scenario struct {
	Name            string `yaml:"name"`
	SimulatedWorkUS int    `yaml:"simulated_work_us"`
	Iterations      int    `yaml:"iterations"`
	Description     string `yaml:"description,omitempty"`
}

// DefaultScenarios is the catalog used when the config does not supply one.
// It spans an empty function through realistic API call durations so the
// report shows how probe overhead scales with per-call work.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:            "Empty Function",
			SimulatedWorkUS: 0,
			Iterations:      1000000,
			Description:     "Worst case: a few nanoseconds of arithmetic per call",
		},
		{
			Name:            "5 us Function",
			SimulatedWorkUS: 5,
			Iterations:      100000,
			Description:     "Ultra-fast API, comparable to uprobe overhead",
		},
		{
			Name:            "50 us Function",
			SimulatedWorkUS: 50,
			Iterations:      50000,
			Description:     "Fast API, e.g. simple device queries",
		},
		{
			Name:            "100 us Function",
			SimulatedWorkUS: 100,
			Iterations:      10000,
			Description:     "Typical API, e.g. small allocations and copies",
		},
		{
			Name:            "500 us Function",
			SimulatedWorkUS: 500,
			Iterations:      5000,
			Description:     "Medium API, e.g. medium copies and kernel launches",
		},
		{
			Name:            "1000 us (1ms) Function",
			SimulatedWorkUS: 1000,
			Iterations:      2000,
			Description:     "Slow API, e.g. large allocations and complex operations",
		},
	}
}

// ExpectedWorkDurations returns the simulated-work values of the catalog,
// used by combine validation to spot missing scenarios.
func ExpectedWorkDurations(scenarios []Scenario) []int {
	out := make([]int, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s.SimulatedWorkUS)
	}

	return out
}
