package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/loykin/ngxvisor/internal/executor"
)

// Detector is a strategy that determines whether the supervised binary is running.
// Implementations re-query the OS on every call; nothing is cached.
// It must be safe for concurrent use.
type Detector interface {
	// Alive returns true if the binary is detected as running.
	Alive(ctx context.Context) (bool, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}

// ErrProcessCheck reports that the OS could not be asked about running processes.
var ErrProcessCheck = errors.New("process check failed")

// Detector kinds accepted by FromConfig.
const (
	KindListing = "listing"
	KindTable   = "table"
	KindCommand = "command"
)

// FromConfig builds the detector selected by kind. An empty kind means KindListing.
func FromConfig(kind, binary, command string, r executor.Runner) (Detector, error) {
	switch kind {
	case "", KindListing:
		if binary == "" {
			return nil, errors.New("listing detector requires a binary name")
		}
		return ListingDetector{Binary: binary, Runner: r}, nil
	case KindTable:
		if binary == "" {
			return nil, errors.New("table detector requires a binary name")
		}
		return TableDetector{Binary: binary, Runner: r}, nil
	case KindCommand:
		if command == "" {
			return nil, errors.New("command detector requires a command")
		}
		return CommandDetector{Command: command, Runner: r}, nil
	default:
		return nil, fmt.Errorf("unknown detector type %q", kind)
	}
}
