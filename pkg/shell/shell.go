// Package shell runs external commands with merged environments, bounded
// execution time and captured output. It is the single choke point through
// which the benchmark talks to the workload binary and the tracer CLIs.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeout indicates the command did not complete within its allotted
// time. Callers decide whether this is fatal to the trial or the scenario.
var ErrTimeout = errors.New("command timed out")

// DefaultTimeout bounds commands that do not specify their own limit.
const DefaultTimeout = 5 * time.Minute

// Spec describes a single external command invocation.
type Spec struct {
	// Command is the argv to run. Command[0] is the binary.
	Command []string

	// Env entries are merged onto the ambient environment, overriding
	// on key collision.
	Env map[string]string

	// Timeout bounds execution; DefaultTimeout applies when zero.
	Timeout time.Duration
}

// Result holds the captured outcome of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. The interface exists so trial runners
// can be tested against a scripted fake.
type Runner interface {
	// Run executes the command and captures its output. A non-zero exit
	// status is not an error: the Result carries the exit code and the
	// caller decides what it means.
	Run(ctx context.Context, spec Spec) (*Result, error)

	// RunQuiet executes a fire-and-forget control command. Failures are
	// logged at debug level and swallowed so that idempotent bookkeeping
	// ("destroy if exists") stays non-fatal.
	RunQuiet(ctx context.Context, spec Spec)
}

// Compile-time interface check.
var _ Runner = (*runner)(nil)

type runner struct {
	log logrus.FieldLogger
}

// NewRunner creates a Runner that executes commands on the host.
func NewRunner(log logrus.FieldLogger) Runner {
	return &runner{
		log: log.WithField("component", "shell"),
	}
}

// Run executes the command and captures its output.
func (r *runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	timeout := spec.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Env = mergeEnv(spec.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.WithField("command", spec.Command).Debug("Running command")

	err := cmd.Run()

	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, spec.Command)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()

			return res, nil
		}

		return res, fmt.Errorf("running %v: %w", spec.Command, err)
	}

	return res, nil
}

// RunQuiet executes a control command and swallows failures.
func (r *runner) RunQuiet(ctx context.Context, spec Spec) {
	if _, err := r.Run(ctx, spec); err != nil {
		r.log.WithError(err).WithField("command", spec.Command).Debug("Control command failed")
	}
}

// mergeEnv merges overrides onto the ambient environment. Overrides win on
// key collision because os/exec uses the last occurrence of a variable.
func mergeEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return os.Environ()
	}

	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}

	return env
}
