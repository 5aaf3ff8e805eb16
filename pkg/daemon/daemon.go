// Package daemon owns the long-lived kernel-probe tracer process for the
// duration of one trial: privileged launch, attach warm-up, graceful
// termination with forceful escalation, and trace artifact collection.
//
// The daemon is an explicit owned handle, not a scope-bound resource: the
// process is privileged and detached, so nothing cleans it up implicitly.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// State tracks the daemon handle lifecycle.
type State int

const (
	// StateLaunched means the process has been started but may still be
	// attaching its probes.
	StateLaunched State = iota

	// StateReady means the warm-up interval has elapsed and the daemon
	// is assumed to be attached.
	StateReady

	// StateStopped means the process has exited or been killed.
	StateStopped
)

// DefaultWarmup is how long to wait after launch for probe attach.
const DefaultWarmup = 2 * time.Second

// DefaultGracePeriod bounds the wait for a graceful exit before SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// Handle is an owned reference to a running tracer daemon.
type Handle struct {
	log       logrus.FieldLogger
	cmd       *exec.Cmd
	tracePath string
	state     State
	waitCh    chan error
}

// Launch starts the tracer daemon in the background. command is the full
// privileged argv (e.g. sudo + tracer binary); the trace output path is
// appended as the final argument.
func Launch(log logrus.FieldLogger, command []string, tracePath string) (*Handle, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty daemon command")
	}

	argv := make([]string, 0, len(command)+1)
	argv = append(argv, command...)
	argv = append(argv, tracePath)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching daemon %v: %w", argv, err)
	}

	h := &Handle{
		log:       log.WithField("component", "daemon"),
		cmd:       cmd,
		tracePath: tracePath,
		state:     StateLaunched,
		waitCh:    make(chan error, 1),
	}

	go func() {
		h.waitCh <- cmd.Wait()
	}()

	h.log.WithFields(logrus.Fields{
		"pid":   cmd.Process.Pid,
		"trace": tracePath,
	}).Debug("Daemon launched")

	return h, nil
}

// PID returns the launched process's PID. This is the launcher (possibly a
// privilege wrapper), not necessarily the tracer itself; resource sampling
// resolves the tracer by name instead.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// WaitReady blocks for the warm-up interval so the daemon can finish
// attaching its probes before measurement begins. Honors ctx cancellation.
func (h *Handle) WaitReady(ctx context.Context, warmup time.Duration) error {
	if warmup <= 0 {
		warmup = DefaultWarmup
	}

	select {
	case <-time.After(warmup):
		h.state = StateReady

		return nil
	case err := <-h.waitCh:
		h.state = StateStopped

		return fmt.Errorf("daemon exited during warm-up: %v", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate stops the daemon: SIGINT first, escalating to SIGKILL when the
// process does not exit within grace. Termination failure never blocks the
// caller from proceeding to the next trial, so no error is returned.
func (h *Handle) Terminate(grace time.Duration) {
	if h.state == StateStopped {
		return
	}

	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	if err := h.cmd.Process.Signal(syscall.SIGINT); err != nil {
		h.log.WithError(err).Debug("SIGINT failed, process may have exited")
	}

	select {
	case <-h.waitCh:
	case <-time.After(grace):
		h.log.WithField("pid", h.cmd.Process.Pid).Warn("Daemon did not exit gracefully, killing")

		if err := h.cmd.Process.Kill(); err != nil {
			h.log.WithError(err).Warn("Failed to kill daemon")
		}

		select {
		case <-h.waitCh:
		case <-time.After(time.Second):
			h.log.Warn("Daemon still not reaped after kill")
		}
	}

	h.state = StateStopped
}

// CollectTrace reads the trace output file, returning its byte size and
// line count (a proxy for captured event count), then deletes it to bound
// disk usage. A missing file yields zeros: the daemon may have captured
// nothing.
func (h *Handle) CollectTrace() (size int64, events int64, err error) {
	info, err := os.Stat(h.tracePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}

		return 0, 0, fmt.Errorf("stating trace file: %w", err)
	}

	size = info.Size()

	f, err := os.Open(h.tracePath)
	if err != nil {
		return size, 0, fmt.Errorf("opening trace file: %w", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		events++
	}

	scanErr := scanner.Err()

	_ = f.Close()

	if err := os.Remove(h.tracePath); err != nil {
		h.log.WithError(err).WithField("trace", h.tracePath).Warn("Failed to remove trace file")
	}

	if scanErr != nil {
		return size, events, fmt.Errorf("counting trace events: %w", scanErr)
	}

	return size, events, nil
}
