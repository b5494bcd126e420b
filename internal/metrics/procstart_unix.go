//go:build !windows

package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
	sysconf "github.com/tklauser/go-sysconf"
)

var errStartUnavailable = errors.New("process start time unavailable")

// procStartUnix returns the process start time as Unix seconds using platform-native methods.
func procStartUnix(ctx context.Context, pid int32) (int64, error) {
	if pid <= 0 {
		return 0, errStartUnavailable
	}
	if runtime.GOOS == "linux" {
		return procStartUnixLinux(pid)
	}
	// Darwin/BSD via gopsutil (uses sysctl under the hood)
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

// procStartUnixLinux reads /proc to compute a stable start time without spawning external processes.
func procStartUnixLinux(pid int32) (int64, error) {
	// starttime is field 22 of /proc/[pid]/stat, in clock ticks since boot
	b, err := os.ReadFile("/proc/" + strconv.Itoa(int(pid)) + "/stat")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errStartUnavailable, err)
	}
	startTicks, err := parseStatStartTicks(string(b))
	if err != nil {
		return 0, err
	}
	btime, err := bootTime("/proc/stat")
	if err != nil {
		return 0, err
	}
	clk, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clk <= 0 {
		clk = 100
	}
	return btime + startTicks/clk, nil
}

func parseStatStartTicks(line string) (int64, error) {
	// comm may contain spaces; it ends at the last ") "
	end := strings.LastIndex(line, ") ")
	if end == -1 {
		return 0, fmt.Errorf("%w: malformed stat line", errStartUnavailable)
	}
	parts := strings.Fields(line[end+2:])
	// parts[0] is state (field 3 overall); starttime => index 19
	if len(parts) < 20 {
		return 0, fmt.Errorf("%w: short stat line", errStartUnavailable)
	}
	ticks, err := strconv.ParseInt(parts[19], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errStartUnavailable, err)
	}
	return ticks, nil
}

func bootTime(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errStartUnavailable, err)
	}
	defer func() { _ = f.Close() }()
	s := bufio.NewScanner(f)
	for s.Scan() {
		if v, ok := strings.CutPrefix(s.Text(), "btime "); ok {
			return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		}
	}
	return 0, fmt.Errorf("%w: btime not found", errStartUnavailable)
}
