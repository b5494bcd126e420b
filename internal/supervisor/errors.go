package supervisor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/ngxvisor/internal/detector"
	"github.com/loykin/ngxvisor/internal/logs"
)

// Error kinds. Every error returned by a Supervisor operation matches exactly
// one of these with errors.Is.
var (
	ErrBinaryMissing      = errors.New("binary missing")
	ErrProcessCheckFailed = detector.ErrProcessCheck
	ErrStartFailed        = errors.New("start failed")
	ErrStopFailed         = errors.New("stop failed")
	ErrRestartFailed      = errors.New("restart failed")
	ErrConfigInvalid      = errors.New("config invalid")
	ErrInvalidLogKind     = logs.ErrInvalidKind
	ErrLogIOFailed        = logs.ErrIO
	ErrMetricsUnavailable = errors.New("metrics unavailable")
)

// OpError is a terminal failure of one supervisor operation.
type OpError struct {
	Op   string
	Kind error
	// Code is the exit code of the supervised binary when it ran and failed, else 0.
	Code    int
	Message string
}

func (e *OpError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Message)
}

func (e *OpError) Unwrap() error { return e.Kind }

var kinds = []error{
	ErrBinaryMissing, ErrProcessCheckFailed, ErrStartFailed, ErrStopFailed, ErrRestartFailed,
	ErrConfigInvalid, ErrInvalidLogKind, ErrLogIOFailed, ErrMetricsUnavailable,
}

// KindOf returns the error kind err belongs to, or nil when it matches none.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// detail strips a leading kind prefix from a wrapped error's text so it is
// not repeated in OpError.Error.
func detail(err error) string {
	msg := err.Error()
	if k := KindOf(err); k != nil {
		msg = strings.TrimPrefix(msg, k.Error()+": ")
	}
	return msg
}
