package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimingOutput(t *testing.T) {
	out := "wall_time=1.23 user_time=0.98 sys_time=0.11 max_rss=20480\n"

	got := parseTimingOutput(out)

	assert.Equal(t, 1.23, got.WallS)
	assert.Equal(t, 0.98, got.UserS)
	assert.Equal(t, 0.11, got.SystemS)
	assert.Equal(t, int64(20480), got.MaxRSSKB)
}

func TestParseTimingOutputPartialLine(t *testing.T) {
	// A changed wrapper format should degrade to zeros field by field,
	// not lose the whole trial.
	got := parseTimingOutput("wall_time=2.5 something_else=1\n")

	assert.Equal(t, 2.5, got.WallS)
	assert.Zero(t, got.UserS)
	assert.Zero(t, got.SystemS)
	assert.Zero(t, got.MaxRSSKB)
}

func TestParseTimingOutputEmpty(t *testing.T) {
	got := parseTimingOutput("")

	assert.Zero(t, got.WallS)
	assert.Zero(t, got.MaxRSSKB)
}

func TestParseTimingOutputIgnoresSurroundingNoise(t *testing.T) {
	out := "some warning\nwall_time=0.50 user_time=0.40 sys_time=0.05 max_rss=1024\ntrailer\n"

	got := parseTimingOutput(out)

	assert.Equal(t, 0.5, got.WallS)
	assert.Equal(t, int64(1024), got.MaxRSSKB)
}

func TestParseWorkloadOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
	}{
		{
			name:   "standard line",
			output: "Iterations: 1000\nAverage time per call: 123.45 ns\n",
			want:   123.45,
		},
		{
			name:   "extra whitespace",
			output: "Average time per call:     7 ns",
			want:   7,
		},
		{
			name:   "missing line defaults to zero",
			output: "no timing info here",
			want:   0,
		},
		{
			name:   "empty output",
			output: "",
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseWorkloadOutput(tt.output))
		})
	}
}
