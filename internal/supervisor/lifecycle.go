package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/ngxvisor/internal/executor"
)

// Operation names used in audit records, metrics and events.
const (
	OpStart      = "start"
	OpStop       = "stop"
	OpRestart    = "restart"
	OpTestConfig = "test_config"
	OpVersion    = "get_version"
	OpStatus     = "get_status"
	OpInfo       = "get_service_info"
	OpClearLog   = "clear_log"
	OpLogs       = "get_logs"
	OpLogExists  = "check_log_exists"
	OpOpenLogs   = "open_log_folder"
)

// Status is the derived liveness of the server.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Start launches the binary unless it is already running. The launch command
// must exit zero; on success a leftover PID file is removed.
//
// Two concurrent Start calls on a stopped server may both launch: the probe
// and the launch are not serialised.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.requireBinary(OpStart); err != nil {
		return err
	}
	alive, err := s.probe.Alive(ctx)
	if err != nil {
		return s.fail(OpStart, ErrProcessCheckFailed, 0, detail(err))
	}
	if alive {
		s.record(OpStart, "already running", true)
		return nil
	}

	res, err := s.exec.Run(ctx, s.ref.Path(), nil, s.ref.InstallDir)
	if err != nil {
		return s.fail(OpStart, ErrStartFailed, 0, detail(err))
	}
	if !res.Success {
		return s.fail(OpStart, ErrStartFailed, res.ExitCode, exitMessage(res))
	}

	s.removePIDFile()
	s.record(OpStart, "started", true)
	s.notify(OpStart)
	return nil
}

// Stop asks the running server to shut down. Calling it on a stopped server
// fails with whatever the binary reports.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.signal(ctx, OpStop, "stop", "stopped", ErrStopFailed)
}

// Restart asks the running server to reload its configuration.
func (s *Supervisor) Restart(ctx context.Context) error {
	return s.signal(ctx, OpRestart, "reload", "reloaded", ErrRestartFailed)
}

func (s *Supervisor) signal(ctx context.Context, op, sig, outcome string, kind error) error {
	if err := s.requireBinary(op); err != nil {
		return err
	}
	res, err := s.exec.Run(ctx, s.ref.Path(), []string{"-s", sig}, s.ref.InstallDir)
	if err != nil {
		return s.fail(op, kind, 0, detail(err))
	}
	if !res.Success {
		return s.fail(op, kind, res.ExitCode, exitMessage(res))
	}
	s.record(op, outcome, true)
	s.notify(op)
	return nil
}

// TestConfig runs the binary's syntax check against its default configuration.
func (s *Supervisor) TestConfig(ctx context.Context) error {
	if err := s.requireBinary(OpTestConfig); err != nil {
		return err
	}
	return s.testConfig(ctx, []string{"-t"}, s.ref.InstallDir, "configuration test successful")
}

// TestConfigFile runs the syntax check against the configuration file at path.
func (s *Supervisor) TestConfigFile(ctx context.Context, path string) error {
	if err := s.requireBinary(OpTestConfig); err != nil {
		return err
	}
	if path == "" {
		return s.fail(OpTestConfig, ErrConfigInvalid, 0, "no configuration file given")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.ref.InstallDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return s.fail(OpTestConfig, ErrConfigInvalid, 0, detail(err))
	}
	return s.testConfig(ctx, []string{"-t", "-c", path}, filepath.Dir(path),
		"configuration test successful: "+path)
}

func (s *Supervisor) testConfig(ctx context.Context, args []string, dir, outcome string) error {
	res, err := s.exec.Run(ctx, s.ref.Path(), args, dir)
	if err != nil {
		return s.fail(OpTestConfig, ErrConfigInvalid, 0, detail(err))
	}
	if !res.Success {
		return s.fail(OpTestConfig, ErrConfigInvalid, res.ExitCode, exitMessage(res))
	}
	s.record(OpTestConfig, outcome, true)
	return nil
}

// Version returns the version token the binary prints on stderr, e.g. "nginx/1.24.0".
func (s *Supervisor) Version(ctx context.Context) (string, error) {
	if err := s.requireBinary(OpVersion); err != nil {
		return "", err
	}
	v, code, err := s.version(ctx)
	if err != nil {
		return "", s.fail(OpVersion, ErrMetricsUnavailable, code, detail(err))
	}
	return v, nil
}

func (s *Supervisor) version(ctx context.Context) (string, int, error) {
	res, err := s.exec.Run(ctx, s.ref.Path(), []string{"-v"}, s.ref.InstallDir)
	if err != nil {
		return "", 0, err
	}
	if !res.Success {
		return "", res.ExitCode, errors.New(exitMessage(res))
	}
	v := ParseVersion(string(res.Stderr))
	if v == "" {
		return "", 0, errors.New("no version on stderr")
	}
	return v, 0, nil
}

// ParseVersion returns the last whitespace-delimited token of the version banner.
func ParseVersion(banner string) string {
	f := strings.Fields(banner)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}

// Status reports whether the server is running, asking the OS every time.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	if err := s.requireBinary(OpStatus); err != nil {
		return "", err
	}
	alive, err := s.probe.Alive(ctx)
	if err != nil {
		return "", s.fail(OpStatus, ErrProcessCheckFailed, 0, detail(err))
	}
	return statusOf(alive), nil
}

func statusOf(alive bool) Status {
	if alive {
		return StatusRunning
	}
	return StatusStopped
}

func (s *Supervisor) removePIDFile() {
	if s.pidFile == "" {
		return
	}
	err := os.Remove(s.pidFile)
	switch {
	case err == nil:
		slog.Debug("removed pid file", "path", s.pidFile)
	case !errors.Is(err, os.ErrNotExist):
		slog.Warn("failed to remove pid file", "path", s.pidFile, "error", err)
	}
}

func exitMessage(res executor.Result) string {
	msg := strings.TrimSpace(string(res.Stderr))
	if msg == "" {
		return fmt.Sprintf("exit status %d", res.ExitCode)
	}
	return msg
}
