// Package supervisor owns the lifecycle of one locally installed server binary:
// starting, stopping, reloading and config-testing it, assembling status
// snapshots, and exposing its log files.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/loykin/ngxvisor/internal/detector"
	"github.com/loykin/ngxvisor/internal/executor"
	"github.com/loykin/ngxvisor/internal/history"
	"github.com/loykin/ngxvisor/internal/logs"
	"github.com/loykin/ngxvisor/internal/metrics"
	"github.com/loykin/ngxvisor/internal/oplog"
	"github.com/loykin/ngxvisor/internal/stubstatus"
)

// Executor runs the supervised binary and helper programs.
// *executor.Executor satisfies it.
type Executor interface {
	executor.Runner
	Detach(program string, args ...string) error
}

// StatusSource yields connection counters from the server's status page.
type StatusSource interface {
	Fetch(ctx context.Context) (stubstatus.Sample, error)
}

// ResourceSampler yields CPU, memory and start time of the server processes.
type ResourceSampler interface {
	Sample(ctx context.Context) (metrics.Resource, error)
}

// ProcessHandleRef names the supervised binary. No PID is kept; liveness is
// re-queried from the OS on every call.
type ProcessHandleRef struct {
	Binary     string
	InstallDir string
}

// Path is the absolute path of the executable.
func (r ProcessHandleRef) Path() string { return filepath.Join(r.InstallDir, r.Binary) }

// Options configures a Supervisor. InstallDir and Binary are required;
// everything else has a default.
type Options struct {
	InstallDir string
	Binary     string
	// PIDFile is removed after a clean start. Relative paths are resolved
	// against InstallDir; empty disables the removal.
	PIDFile    string
	ServiceLog string

	StatusURL     string
	StatusTimeout time.Duration

	ProbeKind    string
	ProbeCommand string

	MonitorInterval time.Duration
	Workers         int

	Exec      Executor
	Probe     detector.Detector
	Status    StatusSource
	Resources ResourceSampler
	Sinks     []history.Sink

	Now func() time.Time
}

// Supervisor is constructed once and shared by every caller. All methods are
// safe for concurrent use; no lock is held across a check-then-act sequence.
type Supervisor struct {
	ref       ProcessHandleRef
	pidFile   string
	exec      Executor
	probe     detector.Detector
	status    StatusSource
	resources ResourceSampler
	logs      *logs.Store
	audit     *oplog.Writer
	now       func() time.Time

	interval time.Duration
	bus      *broadcaster
	observed *observedState

	monMu   sync.Mutex
	monitor *Monitor
}

// New validates opts, creates the log directory and files, and wires defaults.
func New(opts Options) (*Supervisor, error) {
	if opts.InstallDir == "" || !filepath.IsAbs(opts.InstallDir) {
		return nil, fmt.Errorf("install dir must be an absolute path: %q", opts.InstallDir)
	}
	if opts.Binary == "" {
		return nil, errors.New("binary name is required")
	}
	ref := ProcessHandleRef{Binary: opts.Binary, InstallDir: filepath.Clean(opts.InstallDir)}

	exec := opts.Exec
	if exec == nil {
		workers := opts.Workers
		if workers <= 0 {
			workers = executor.DefaultWorkers
		}
		exec = executor.New(workers)
	}
	probe := opts.Probe
	if probe == nil {
		var err error
		probe, err = detector.FromConfig(opts.ProbeKind, opts.Binary, opts.ProbeCommand, exec)
		if err != nil {
			return nil, err
		}
	}
	status := opts.Status
	if status == nil {
		status = stubstatus.NewFetcher(opts.StatusURL, opts.StatusTimeout)
	}
	resources := opts.Resources
	if resources == nil {
		resources = metrics.Sampler{Binary: opts.Binary, Pool: exec}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.MonitorInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	pidFile := opts.PIDFile
	if pidFile != "" && !filepath.IsAbs(pidFile) {
		pidFile = filepath.Join(ref.InstallDir, pidFile)
	}

	store := logs.New(ref.InstallDir, opts.ServiceLog, exec)
	if err := store.EnsureFiles(); err != nil {
		return nil, err
	}

	audit := oplog.New(store.Path(logs.KindService), opts.Binary, opts.Sinks...)
	audit.Pool = exec

	s := &Supervisor{
		ref:       ref,
		pidFile:   pidFile,
		exec:      exec,
		probe:     probe,
		status:    status,
		resources: resources,
		logs:      store,
		audit:     audit,
		now:       now,
		interval:  interval,
		bus:       newBroadcaster(),
	}
	s.observed = newObservedState(opts.Binary)
	slog.Debug("supervisor ready", "binary", ref.Path(), "probe", probe.Describe())
	return s, nil
}

// Ref returns the immutable binary reference.
func (s *Supervisor) Ref() ProcessHandleRef { return s.ref }

// Close stops the monitor, if any, and flushes pending audit deliveries.
func (s *Supervisor) Close() error {
	s.monMu.Lock()
	m := s.monitor
	s.monMu.Unlock()
	if m != nil {
		m.Stop()
	}
	return s.audit.Close()
}

// Subscribe registers an observer of status-change events. The returned
// function unregisters it and closes the channel.
func (s *Supervisor) Subscribe() (<-chan Event, func()) { return s.bus.subscribe() }

// ObservedState is the last state the monitor transitioned into. It is
// informational only; Status always asks the OS.
func (s *Supervisor) ObservedState() string { return s.observed.current() }

func (s *Supervisor) binaryPresent() bool {
	st, err := os.Stat(s.ref.Path())
	return err == nil && !st.IsDir()
}

// record appends an audit line and counts the outcome.
func (s *Supervisor) record(op, outcome string, ok bool) {
	s.audit.Record(op, outcome, ok)
	if ok {
		metrics.IncOperation(op, "ok")
	} else {
		metrics.IncOperation(op, "failed")
	}
}

// fail records a terminal error and returns it.
func (s *Supervisor) fail(op string, kind error, code int, msg string) error {
	e := &OpError{Op: op, Kind: kind, Code: code, Message: msg}
	s.record(op, strings.TrimPrefix(e.Error(), op+": "), false)
	slog.Warn("operation failed", "op", op, "kind", kind, "code", code, "message", msg)
	return e
}

func (s *Supervisor) requireBinary(op string) error {
	if s.binaryPresent() {
		return nil
	}
	return s.fail(op, ErrBinaryMissing, 0, "executable not found at "+s.ref.Path())
}
