// Package session drives the session-based userspace tracer through its
// control CLI: create, enable events, start, stop, destroy, and trace
// artifact accounting. Trace trees are deleted immediately after their size
// is recorded so hundreds of trials cannot exhaust the disk.
package session

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tracebench/tracebench/pkg/shell"
)

// controlTimeout bounds individual session control commands. Control
// commands are metadata operations and finish in well under a second.
const controlTimeout = 30 * time.Second

// Manager owns the lifecycle of named tracing sessions.
type Manager interface {
	// Create destroys any leftover session of the same name, then
	// creates a fresh one writing its trace under outputDir.
	Create(ctx context.Context, name, outputDir string) error

	// EnableEvents enables all userspace events under the configured
	// event namespace for the current session.
	EnableEvents(ctx context.Context) error

	// Start begins recording on the current session.
	Start(ctx context.Context) error

	// Stop halts recording. Failure is non-fatal: the session is still
	// destroyed and its artifact measured.
	Stop(ctx context.Context)

	// Destroy tears the named session down. Idempotent: destroying a
	// session that does not exist is not an error.
	Destroy(ctx context.Context, name string)

	// MeasureAndRemove sums the on-disk size of everything under dir,
	// then deletes the tree. Returns 0 when dir does not exist.
	MeasureAndRemove(dir string) (int64, error)
}

// Compile-time interface check.
var _ Manager = (*manager)(nil)

type manager struct {
	log            logrus.FieldLogger
	sh             shell.Runner
	controlBinary  string
	eventNamespace string
}

// NewManager creates a session Manager driving controlBinary (the lttng
// CLI or a compatible replacement). eventNamespace is the tracepoint
// provider prefix, e.g. "mylib".
func NewManager(log logrus.FieldLogger, sh shell.Runner, controlBinary, eventNamespace string) Manager {
	return &manager{
		log:            log.WithField("component", "session"),
		sh:             sh,
		controlBinary:  controlBinary,
		eventNamespace: eventNamespace,
	}
}

// Create destroys any leftover session of the same name, then creates a
// fresh one.
func (m *manager) Create(ctx context.Context, name, outputDir string) error {
	// Pre-clean: a crashed earlier run may have left the name behind.
	m.Destroy(ctx, name)

	res, err := m.sh.Run(ctx, shell.Spec{
		Command: []string{m.controlBinary, "create", name, "--output=" + outputDir},
		Timeout: controlTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating session %s: %w", name, err)
	}

	if res.ExitCode != 0 {
		return fmt.Errorf("creating session %s: exit %d: %s", name, res.ExitCode, res.Stderr)
	}

	m.log.WithFields(logrus.Fields{
		"session": name,
		"output":  outputDir,
	}).Debug("Session created")

	return nil
}

// EnableEvents enables all events under the configured namespace.
func (m *manager) EnableEvents(ctx context.Context) error {
	res, err := m.sh.Run(ctx, shell.Spec{
		Command: []string{m.controlBinary, "enable-event", "-u", m.eventNamespace + ":*"},
		Timeout: controlTimeout,
	})
	if err != nil {
		return fmt.Errorf("enabling events: %w", err)
	}

	if res.ExitCode != 0 {
		return fmt.Errorf("enabling events: exit %d: %s", res.ExitCode, res.Stderr)
	}

	return nil
}

// Start begins recording on the current session.
func (m *manager) Start(ctx context.Context) error {
	res, err := m.sh.Run(ctx, shell.Spec{
		Command: []string{m.controlBinary, "start"},
		Timeout: controlTimeout,
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	if res.ExitCode != 0 {
		return fmt.Errorf("starting session: exit %d: %s", res.ExitCode, res.Stderr)
	}

	return nil
}

// Stop halts recording. Best-effort.
func (m *manager) Stop(ctx context.Context) {
	m.sh.RunQuiet(ctx, shell.Spec{
		Command: []string{m.controlBinary, "stop"},
		Timeout: controlTimeout,
	})
}

// Destroy tears the named session down. Best-effort and idempotent.
func (m *manager) Destroy(ctx context.Context, name string) {
	m.sh.RunQuiet(ctx, shell.Spec{
		Command: []string{m.controlBinary, "destroy", name},
		Timeout: controlTimeout,
	})
}

// MeasureAndRemove sums the on-disk size of dir, then deletes the tree.
func (m *manager) MeasureAndRemove(dir string) (int64, error) {
	var size int64

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		size += info.Size()

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("measuring trace directory %s: %w", dir, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		// The size was measured; a lingering tree only costs disk.
		m.log.WithError(err).WithField("dir", dir).Warn("Failed to remove trace directory")
	}

	return size, nil
}

// Name builds a session name unique to (work duration, run index) so
// repeated and concurrent runs do not collide.
func Name(workUS, runIndex int) string {
	return fmt.Sprintf("tracebench_%dus_r%d", workUS, runIndex)
}
