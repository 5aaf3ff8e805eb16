package shell

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() Runner {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewRunner(log)
}

func TestRunCapturesOutput(t *testing.T) {
	r := newTestRunner()

	res, err := r.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "echo out; echo err >&2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Zero(t, res.ExitCode)
}

func TestRunMergesEnvironment(t *testing.T) {
	t.Setenv("TRACEBENCH_TEST_AMBIENT", "kept")

	r := newTestRunner()

	res, err := r.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "echo $TRACEBENCH_TEST_AMBIENT $TRACEBENCH_TEST_OVERRIDE"},
		Env:     map[string]string{"TRACEBENCH_TEST_OVERRIDE": "added"},
	})
	require.NoError(t, err)

	assert.Equal(t, "kept added\n", res.Stdout)
}

func TestRunEnvOverrideWins(t *testing.T) {
	t.Setenv("TRACEBENCH_TEST_VAR", "ambient")

	r := newTestRunner()

	res, err := r.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "echo $TRACEBENCH_TEST_VAR"},
		Env:     map[string]string{"TRACEBENCH_TEST_VAR": "override"},
	})
	require.NoError(t, err)

	assert.Equal(t, "override\n", res.Stdout)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	r := newTestRunner()

	res, err := r.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "exit 3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	r := newTestRunner()

	_, err := r.Run(context.Background(), Spec{
		Command: []string{"sleep", "10"},
		Timeout: 50 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestRunEmptyCommand(t *testing.T) {
	r := newTestRunner()

	_, err := r.Run(context.Background(), Spec{})
	require.Error(t, err)
}

func TestRunQuietSwallowsFailure(t *testing.T) {
	r := newTestRunner()

	// Must not panic or propagate the lookup failure.
	r.RunQuiet(context.Background(), Spec{
		Command: []string{"/nonexistent/binary"},
	})
}
