package supervisor

import (
	"context"

	"github.com/loykin/ngxvisor/internal/logs"
)

// Logs returns the last maxLines lines of the named log, filtered by search
// and level substrings.
func (s *Supervisor) Logs(ctx context.Context, kind string, maxLines int, search, level string) (string, error) {
	k, err := s.logKind(OpLogs, kind)
	if err != nil {
		return "", err
	}
	out, err := s.logs.Read(ctx, k, maxLines, search, level)
	if err != nil {
		return "", s.fail(OpLogs, ErrLogIOFailed, 0, detail(err))
	}
	return out, nil
}

// ClearLog truncates the named log in place.
func (s *Supervisor) ClearLog(ctx context.Context, kind string) error {
	k, err := s.logKind(OpClearLog, kind)
	if err != nil {
		return err
	}
	if err := s.logs.Clear(ctx, k); err != nil {
		return s.fail(OpClearLog, ErrLogIOFailed, 0, detail(err))
	}
	s.record(OpClearLog, string(k)+" log cleared", true)
	return nil
}

// LogExists reports whether the named log file exists.
func (s *Supervisor) LogExists(kind string) (bool, error) {
	k, err := s.logKind(OpLogExists, kind)
	if err != nil {
		return false, err
	}
	ok, err := s.logs.Exists(k)
	if err != nil {
		return false, s.fail(OpLogExists, ErrLogIOFailed, 0, detail(err))
	}
	return ok, nil
}

// OpenLogFolder opens the log directory in the desktop file browser.
func (s *Supervisor) OpenLogFolder(ctx context.Context) error {
	if err := s.logs.OpenFolder(ctx); err != nil {
		return s.fail(OpOpenLogs, ErrLogIOFailed, 0, detail(err))
	}
	return nil
}

// FollowLog streams lines appended to the named log until ctx ends.
func (s *Supervisor) FollowLog(ctx context.Context, kind string) (<-chan string, error) {
	k, err := s.logKind(OpLogs, kind)
	if err != nil {
		return nil, err
	}
	ch, err := s.logs.Follow(ctx, k)
	if err != nil {
		return nil, s.fail(OpLogs, ErrLogIOFailed, 0, detail(err))
	}
	return ch, nil
}

func (s *Supervisor) logKind(op, kind string) (logs.Kind, error) {
	k, err := logs.ParseKind(kind)
	if err != nil {
		return "", s.fail(op, ErrInvalidLogKind, 0, detail(err))
	}
	return k, nil
}
