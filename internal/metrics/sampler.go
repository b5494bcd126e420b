package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/loykin/ngxvisor/internal/detector"
	"github.com/shirou/gopsutil/v4/process"
)

// Resource is a point-in-time resource sample of the supervised server,
// summed over the master and every worker process.
type Resource struct {
	Running       bool
	PIDs          []int32
	CPUPercent    float64
	MemoryPercent float64
	// StartUnix is the start time of the oldest matching process in Unix seconds.
	// It is only meaningful when StartKnown is true; it may still be malformed (<= 0).
	StartUnix  int64
	StartKnown bool
}

// Pool runs blocking work on a bounded set of goroutines.
type Pool interface {
	Do(ctx context.Context, fn func() error) error
}

// Sampler collects CPU, memory and start time for every process named Binary.
// With a nil Pool the scan runs on the caller's goroutine.
type Sampler struct {
	Binary string
	Pool   Pool
}

// Sample enumerates the process table and aggregates usage of all matching processes.
// No matching process yields a zero Resource and no error.
func (s Sampler) Sample(ctx context.Context) (Resource, error) {
	if s.Pool == nil {
		return s.sample(ctx)
	}
	var res Resource
	err := s.Pool.Do(ctx, func() error {
		r, err := s.sample(ctx)
		res = r
		return err
	})
	if err != nil {
		return Resource{}, err
	}
	return res, nil
}

func (s Sampler) sample(ctx context.Context) (Resource, error) {
	pids, err := detector.FindPIDs(ctx, s.Binary)
	if err != nil {
		return Resource{}, err
	}
	res := Resource{Running: len(pids) > 0, PIDs: pids}
	for _, pid := range pids {
		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			// exited between enumeration and sampling
			continue
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			res.CPUPercent += cpu
		}
		if mem, err := p.MemoryPercentWithContext(ctx); err == nil {
			res.MemoryPercent += float64(mem)
		}
		start, err := procStartUnix(ctx, pid)
		if err != nil {
			slog.Debug("process start time unavailable", "pid", pid, "error", err)
			continue
		}
		if !res.StartKnown || start < res.StartUnix {
			res.StartUnix = start
			res.StartKnown = true
		}
	}
	return res, nil
}

// Uptime renders the uptime of r at now using the sentinels of UptimeString.
func (r Resource) Uptime(now time.Time) string {
	if !r.Running {
		return UptimeStopped
	}
	if !r.StartKnown {
		return UptimeUnknown
	}
	return UptimeString(r.StartUnix, now)
}
