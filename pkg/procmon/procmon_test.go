package procmon

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor() Monitor {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewMonitor(log)
}

func TestSnapshotSelf(t *testing.T) {
	m := newTestMonitor()

	s, err := m.Snapshot(int32(os.Getpid()))
	require.NoError(t, err)

	assert.Positive(t, s.RSSBytes)
	assert.GreaterOrEqual(t, s.UserCPUS, 0.0)
	assert.GreaterOrEqual(t, s.SystemCPUS, 0.0)
}

func TestSnapshotMissingProcess(t *testing.T) {
	m := newTestMonitor()

	// PIDs are bounded well below this on Linux.
	_, err := m.Snapshot(1 << 22)
	require.Error(t, err)
}

func TestFindByNameMissing(t *testing.T) {
	m := newTestMonitor()

	_, err := m.FindByName("tracebench-no-such-process-zzz")
	require.Error(t, err)
}

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name    string
		before  *Sample
		after   *Sample
		elapsed float64
		want    float64
	}{
		{
			name:    "half a core",
			before:  &Sample{UserCPUS: 1.0, SystemCPUS: 0.5},
			after:   &Sample{UserCPUS: 1.5, SystemCPUS: 1.0},
			elapsed: 2.0,
			want:    50,
		},
		{
			name:    "idle process",
			before:  &Sample{UserCPUS: 3.0, SystemCPUS: 1.0},
			after:   &Sample{UserCPUS: 3.0, SystemCPUS: 1.0},
			elapsed: 5.0,
			want:    0,
		},
		{
			name:    "zero elapsed is undefined",
			before:  &Sample{},
			after:   &Sample{UserCPUS: 1.0},
			elapsed: 0,
			want:    0,
		},
		{
			name:    "negative elapsed is undefined",
			before:  &Sample{},
			after:   &Sample{UserCPUS: 1.0},
			elapsed: -1,
			want:    0,
		},
		{
			name:    "counter regression from pid reuse",
			before:  &Sample{UserCPUS: 9.0},
			after:   &Sample{UserCPUS: 1.0},
			elapsed: 1.0,
			want:    0,
		},
		{
			name:    "nil snapshots",
			before:  nil,
			after:   nil,
			elapsed: 1.0,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CPUPercent(tt.before, tt.after, tt.elapsed), 1e-9)
		})
	}
}
