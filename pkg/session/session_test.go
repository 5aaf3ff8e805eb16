package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebench/tracebench/pkg/shell"
)

func newTestManager(t *testing.T, controlBinary string) Manager {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewManager(log, shell.NewRunner(log), controlBinary, "mylib")
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "tracebench_50us_r3", Name(50, 3))
	assert.Equal(t, "tracebench_0us_r0", Name(0, 0))
}

func TestCreateEnableStartAgainstFakeCLI(t *testing.T) {
	// "true" accepts any arguments and exits 0, standing in for the
	// session control CLI.
	m := newTestManager(t, "true")
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, Name(0, 0), t.TempDir()))
	require.NoError(t, m.EnableEvents(ctx))
	require.NoError(t, m.Start(ctx))

	m.Stop(ctx)
	m.Destroy(ctx, Name(0, 0))
}

func TestCreateSurfacesControlFailure(t *testing.T) {
	m := newTestManager(t, "false")

	err := m.Create(context.Background(), Name(5, 1), t.TempDir())
	require.Error(t, err)
}

func TestStopAndDestroyAreBestEffort(t *testing.T) {
	m := newTestManager(t, "/nonexistent/lttng")
	ctx := context.Background()

	// Must not panic even when the control binary is missing.
	m.Stop(ctx)
	m.Destroy(ctx, "ghost")
}

func TestMeasureAndRemove(t *testing.T) {
	m := newTestManager(t, "true")

	dir := filepath.Join(t.TempDir(), "trace")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "channel0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata"), make([]byte, 100), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "channel0", "stream_0"), make([]byte, 400), 0644))

	size, err := m.MeasureAndRemove(dir)
	require.NoError(t, err)

	assert.Equal(t, int64(500), size)
	assert.NoDirExists(t, dir)
}

func TestMeasureAndRemoveMissingDir(t *testing.T) {
	m := newTestManager(t, "true")

	size, err := m.MeasureAndRemove(filepath.Join(t.TempDir(), "never-created"))
	require.NoError(t, err)
	assert.Zero(t, size)
}
