package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/loykin/ngxvisor/internal/executor"
)

// TableDetector enumerates the process table directly instead of parsing the
// output of a listing utility. It matches on the executable name. The scan
// runs on Runner's pool when one is set.
type TableDetector struct {
	Binary string
	Runner executor.Runner
}

func (d TableDetector) Alive(ctx context.Context) (bool, error) {
	var pids []int32
	scan := func() error {
		var err error
		pids, err = FindPIDs(ctx, d.Binary)
		return err
	}
	var err error
	if d.Runner != nil {
		err = d.Runner.Do(ctx, scan)
	} else {
		err = scan()
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProcessCheck, err)
	}
	return len(pids) > 0, nil
}

func (d TableDetector) Describe() string { return "table:" + d.Binary }

// FindPIDs returns the PIDs of every process whose executable name matches binary.
// Processes that exit or deny access during the scan are skipped.
func FindPIDs(ctx context.Context, binary string) ([]int32, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var pids []int32
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if MatchName(name, binary) {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}

// MatchName compares a process name with the configured binary name,
// ignoring case and a trailing ".exe".
func MatchName(name, binary string) bool {
	if binary == "" {
		return false
	}
	trim := func(s string) string {
		s = strings.TrimSpace(s)
		if len(s) > 4 && strings.EqualFold(s[len(s)-4:], ".exe") {
			s = s[:len(s)-4]
		}
		return s
	}
	return strings.EqualFold(trim(name), trim(binary))
}
