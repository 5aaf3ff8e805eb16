// Package config loads and validates the benchmark suite configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRuns is the number of repetitions per (scenario, method) pair.
	DefaultRuns = 10

	// DefaultOutputDir is where run directories are created.
	DefaultOutputDir = "./results"

	// DefaultTimeCommand is the timing wrapper binary.
	DefaultTimeCommand = "/usr/bin/time"

	// DefaultSessionControl is the session tracer control CLI.
	DefaultSessionControl = "lttng"

	// DefaultEventNamespace is the tracepoint provider prefix.
	DefaultEventNamespace = "mylib"

	// DefaultTrialTimeout bounds a single workload execution.
	DefaultTrialTimeout = 5 * time.Minute

	// DefaultDaemonWarmup is the post-launch attach wait.
	DefaultDaemonWarmup = 2 * time.Second

	// DefaultDaemonGrace bounds the graceful shutdown wait.
	DefaultDaemonGrace = 5 * time.Second
)

// Config is the root configuration for tracebench.
type Config struct {
	Global    GlobalConfig    `yaml:"global"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Workload  WorkloadConfig  `yaml:"workload"`
	Session   SessionConfig   `yaml:"session"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	History   *HistoryConfig  `yaml:"history,omitempty"`
	Upload    *UploadConfig   `yaml:"upload,omitempty"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// BenchmarkConfig contains suite-level settings.
type BenchmarkConfig struct {
	Runs         int        `yaml:"runs"`
	OutputDir    string     `yaml:"output_dir"`
	TrialTimeout Duration   `yaml:"trial_timeout"`
	Scenarios    []Scenario `yaml:"scenarios,omitempty"`
}

// WorkloadConfig describes the workload binary under measurement.
type WorkloadConfig struct {
	Binary      string `yaml:"binary"`
	TimeCommand string `yaml:"time_command"`
}

// SessionConfig describes the session-based tracer method.
type SessionConfig struct {
	ControlBinary  string `yaml:"control_binary"`
	ShimLibrary    string `yaml:"shim_library"`
	EventNamespace string `yaml:"event_namespace"`
}

// DaemonConfig describes the daemon-based tracer method.
type DaemonConfig struct {
	// Command is the privileged launch argv, e.g. ["sudo", "/usr/bin/mylib_tracer"].
	// The trace output path is appended as the final argument.
	Command []string `yaml:"command"`

	// ProcessName resolves the tracer PID for resource sampling.
	ProcessName string   `yaml:"process_name"`
	Warmup      Duration `yaml:"warmup"`
	GracePeriod Duration `yaml:"grace_period"`
}

// HistoryConfig enables the sqlite aggregate history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UploadConfig enables uploading the run directory to S3-compatible storage.
type UploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty"`
}

// S3UploadConfig configures the S3 results uploader.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = "info"
	}

	if c.Benchmark.Runs == 0 {
		c.Benchmark.Runs = DefaultRuns
	}

	if c.Benchmark.OutputDir == "" {
		c.Benchmark.OutputDir = DefaultOutputDir
	}

	if c.Benchmark.TrialTimeout == 0 {
		c.Benchmark.TrialTimeout = Duration(DefaultTrialTimeout)
	}

	if len(c.Benchmark.Scenarios) == 0 {
		c.Benchmark.Scenarios = DefaultScenarios()
	}

	if c.Workload.TimeCommand == "" {
		c.Workload.TimeCommand = DefaultTimeCommand
	}

	if c.Session.ControlBinary == "" {
		c.Session.ControlBinary = DefaultSessionControl
	}

	if c.Session.EventNamespace == "" {
		c.Session.EventNamespace = DefaultEventNamespace
	}

	if c.Daemon.Warmup == 0 {
		c.Daemon.Warmup = Duration(DefaultDaemonWarmup)
	}

	if c.Daemon.GracePeriod == 0 {
		c.Daemon.GracePeriod = Duration(DefaultDaemonGrace)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Benchmark.Runs < 1 {
		return fmt.Errorf("benchmark.runs must be at least 1, got %d", c.Benchmark.Runs)
	}

	if c.Workload.Binary == "" {
		return fmt.Errorf("workload.binary is required")
	}

	if err := validateScenarios(c.Benchmark.Scenarios); err != nil {
		return err
	}

	if c.Benchmark.OutputDir != "" {
		dir := filepath.Dir(c.Benchmark.OutputDir)
		if dir != "." && dir != ".." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory parent %q does not exist", dir)
			}
		}
	}

	if c.History != nil && c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}

	if c.Upload != nil && c.Upload.S3 != nil && c.Upload.S3.Enabled && c.Upload.S3.Bucket == "" {
		return fmt.Errorf("upload.s3.bucket is required when S3 upload is enabled")
	}

	return nil
}

// validateScenarios checks the scenario catalog.
func validateScenarios(scenarios []Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("at least one scenario must be configured")
	}

	seen := make(map[string]struct{}, len(scenarios))

	for i, s := range scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario %d: name is required", i)
		}

		if _, exists := seen[s.Name]; exists {
			return fmt.Errorf("scenario %d: duplicate name %q", i, s.Name)
		}

		seen[s.Name] = struct{}{}

		if s.SimulatedWorkUS < 0 {
			return fmt.Errorf("scenario %q: simulated_work_us must be non-negative", s.Name)
		}

		if s.Iterations <= 0 {
			return fmt.Errorf("scenario %q: iterations must be positive", s.Name)
		}
	}

	return nil
}

// CheckArtifacts verifies the external binaries the suite depends on exist
// before any trial runs. Missing artifacts are setup-time fatal: the suite
// never starts half-runnable.
func (c *Config) CheckArtifacts() error {
	required := []string{c.Workload.Binary}

	if c.Session.ShimLibrary != "" {
		required = append(required, c.Session.ShimLibrary)
	}

	for _, path := range required {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("required artifact %s: %w", path, err)
		}
	}

	return nil
}
