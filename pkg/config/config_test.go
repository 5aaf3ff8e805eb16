package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
workload:
  binary: /usr/local/bin/sample_app
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Global.LogLevel)
	assert.Equal(t, DefaultRuns, cfg.Benchmark.Runs)
	assert.Equal(t, DefaultOutputDir, cfg.Benchmark.OutputDir)
	assert.Equal(t, DefaultTrialTimeout, cfg.Benchmark.TrialTimeout.Std())
	assert.Equal(t, DefaultTimeCommand, cfg.Workload.TimeCommand)
	assert.Equal(t, DefaultSessionControl, cfg.Session.ControlBinary)
	assert.Equal(t, DefaultEventNamespace, cfg.Session.EventNamespace)
	assert.Equal(t, DefaultDaemonWarmup, cfg.Daemon.Warmup.Std())
	assert.Equal(t, DefaultDaemonGrace, cfg.Daemon.GracePeriod.Std())
	assert.Len(t, cfg.Benchmark.Scenarios, 6)
}

func TestLoadCustomScenarios(t *testing.T) {
	path := writeConfig(t, `
workload:
  binary: /usr/local/bin/sample_app
benchmark:
  runs: 3
  scenarios:
    - name: quick
      simulated_work_us: 10
      iterations: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Benchmark.Scenarios, 1)
	assert.Equal(t, "quick", cfg.Benchmark.Scenarios[0].Name)
	assert.Equal(t, 3, cfg.Benchmark.Runs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Workload.Binary = "/bin/true"
		cfg.applyDefaults()

		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero runs",
			mutate:  func(c *Config) { c.Benchmark.Runs = -1 },
			wantErr: "runs",
		},
		{
			name:    "missing workload binary",
			mutate:  func(c *Config) { c.Workload.Binary = "" },
			wantErr: "workload.binary",
		},
		{
			name: "duplicate scenario name",
			mutate: func(c *Config) {
				c.Benchmark.Scenarios = []Scenario{
					{Name: "a", Iterations: 1},
					{Name: "a", Iterations: 1},
				}
			},
			wantErr: "duplicate",
		},
		{
			name: "negative work duration",
			mutate: func(c *Config) {
				c.Benchmark.Scenarios = []Scenario{
					{Name: "a", SimulatedWorkUS: -5, Iterations: 1},
				}
			},
			wantErr: "non-negative",
		},
		{
			name: "zero iterations",
			mutate: func(c *Config) {
				c.Benchmark.Scenarios = []Scenario{
					{Name: "a", Iterations: 0},
				}
			},
			wantErr: "iterations",
		},
		{
			name: "history enabled without path",
			mutate: func(c *Config) {
				c.History = &HistoryConfig{Enabled: true}
			},
			wantErr: "history.path",
		},
		{
			name: "s3 enabled without bucket",
			mutate: func(c *Config) {
				c.Upload = &UploadConfig{S3: &S3UploadConfig{Enabled: true}}
			},
			wantErr: "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCheckArtifacts(t *testing.T) {
	cfg := &Config{}
	cfg.Workload.Binary = "/bin/true"
	cfg.applyDefaults()

	require.NoError(t, cfg.CheckArtifacts())

	cfg.Session.ShimLibrary = filepath.Join(t.TempDir(), "libshim.so")
	require.Error(t, cfg.CheckArtifacts())

	require.NoError(t, os.WriteFile(cfg.Session.ShimLibrary, []byte{}, 0644))
	require.NoError(t, cfg.CheckArtifacts())
}

func TestDurationsParseFromYAML(t *testing.T) {
	path := writeConfig(t, `
workload:
  binary: /bin/true
daemon:
  warmup: 500ms
  grace_period: 10s
benchmark:
  trial_timeout: 2m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Daemon.Warmup.Std())
	assert.Equal(t, 10*time.Second, cfg.Daemon.GracePeriod.Std())
	assert.Equal(t, 2*time.Minute, cfg.Benchmark.TrialTimeout.Std())
}
