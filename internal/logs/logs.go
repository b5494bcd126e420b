// Package logs reads, filters, truncates and follows the supervised server's
// log files under <install_dir>/logs.
package logs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	ErrInvalidKind = errors.New("invalid log kind")
	ErrIO          = errors.New("log i/o failed")
)

// Kind selects one of the known log files.
type Kind string

const (
	KindService Kind = "service"
	KindError   Kind = "error"
	KindAccess  Kind = "access"
)

// Kinds lists every accepted log kind.
var Kinds = []Kind{KindService, KindError, KindAccess}

// ParseKind validates s as a log kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindService, KindError, KindAccess:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (supported: access, error, service)", ErrInvalidKind, s)
}

// DefaultServiceLog is the file operation records are appended to.
const DefaultServiceLog = "nginx-service.log"

// Pool runs blocking work and detached helpers. *executor.Executor satisfies it.
type Pool interface {
	Do(ctx context.Context, fn func() error) error
	Detach(program string, args ...string) error
}

// Store gives access to the log files in Dir.
type Store struct {
	Dir        string
	ServiceLog string
	Pool       Pool
}

// New returns a Store rooted at <installDir>/logs.
func New(installDir, serviceLog string, pool Pool) *Store {
	if serviceLog == "" {
		serviceLog = DefaultServiceLog
	}
	return &Store{Dir: filepath.Join(installDir, "logs"), ServiceLog: serviceLog, Pool: pool}
}

// Path returns the file backing kind.
func (s *Store) Path(kind Kind) string {
	switch kind {
	case KindError:
		return filepath.Join(s.Dir, "error.log")
	case KindAccess:
		return filepath.Join(s.Dir, "access.log")
	default:
		return filepath.Join(s.Dir, s.ServiceLog)
	}
}

// EnsureFiles creates the log directory and every known log file, leaving
// existing files untouched.
func (s *Store) EnsureFiles() error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	for _, k := range Kinds {
		f, err := os.OpenFile(s.Path(k), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		_ = f.Close()
	}
	return nil
}

// Read returns the last maxLines lines of kind, then keeps those containing
// search and then those containing level. Empty filters are ignored.
func (s *Store) Read(ctx context.Context, kind Kind, maxLines int, search, level string) (string, error) {
	var out string
	err := s.Pool.Do(ctx, func() error {
		b, err := os.ReadFile(s.Path(kind))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		out = filterLines(string(b), maxLines, search, level)
		return nil
	})
	return out, err
}

func filterLines(content string, maxLines int, search, level string) string {
	lines := splitLines(content)
	if maxLines < 0 {
		maxLines = 0
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	kept := lines[:0]
	for _, l := range lines {
		if search != "" && !strings.Contains(l, search) {
			continue
		}
		if level != "" && !strings.Contains(l, level) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Clear truncates kind in place, creating the directory and file when missing.
// The file is never removed, so a writer holding it open keeps working.
func (s *Store) Clear(ctx context.Context, kind Kind) error {
	return s.Pool.Do(ctx, func() error {
		path := s.Path(kind)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		return nil
	})
}

// Exists reports whether the file for kind is present.
func (s *Store) Exists(kind Kind) (bool, error) {
	_, err := os.Stat(s.Path(kind))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrIO, err)
}

// OpenFolder asks the desktop to show the log directory.
func (s *Store) OpenFolder(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st, err := os.Stat(s.Dir); err != nil || !st.IsDir() {
		return fmt.Errorf("%w: log folder %s does not exist", ErrIO, s.Dir)
	}
	if err := s.Pool.Detach(fileBrowser(), s.Dir); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func fileBrowser() string {
	switch runtime.GOOS {
	case "windows":
		return "explorer"
	case "darwin":
		return "open"
	default:
		return "xdg-open"
	}
}
