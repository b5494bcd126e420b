//go:build windows

package metrics

import (
	"context"
	"errors"
	"fmt"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

var errStartUnavailable = errors.New("process start time unavailable")

// procStartUnix uses gopsutil, which wraps GetProcessTimes.
func procStartUnix(ctx context.Context, pid int32) (int64, error) {
	if pid <= 0 {
		return 0, errStartUnavailable
	}
	p, err := gopsproc.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errStartUnavailable, err)
	}
	ms, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errStartUnavailable, err)
	}
	return ms / 1000, nil
}
