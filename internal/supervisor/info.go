package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/loykin/ngxvisor/internal/stubstatus"
)

// ServiceInfo is a point-in-time snapshot of the server. When Status is
// stopped every optional field is nil.
type ServiceInfo struct {
	Status            Status    `json:"status"`
	Version           *string   `json:"version"`
	Uptime            *string   `json:"uptime"`
	CPUUsage          *float64  `json:"cpu_usage"`
	MemoryUsage       *float64  `json:"memory_usage"`
	ActiveConnections *uint64   `json:"active_connections"`
	TotalConnections  *uint64   `json:"total_connections"`
	RequestsPerSecond *uint64   `json:"requests_per_second"`
	CollectedAt       time.Time `json:"collected_at"`
}

// ServiceInfo builds a fresh snapshot. A missing binary or a failed process
// check is audited and reported as a stopped snapshot with every optional
// field nil. The error is non-nil only when ctx ends first.
func (s *Supervisor) ServiceInfo(ctx context.Context) (ServiceInfo, error) {
	if err := s.requireBinary(OpInfo); err != nil {
		return s.stoppedInfo(), nil
	}
	info, err := s.snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ServiceInfo{}, ctx.Err()
		}
		_ = s.fail(OpInfo, ErrProcessCheckFailed, 0, detail(err))
		return s.stoppedInfo(), nil
	}
	return info, nil
}

func (s *Supervisor) stoppedInfo() ServiceInfo {
	return ServiceInfo{Status: StatusStopped, CollectedAt: s.now()}
}

// snapshot probes first and fills optional fields only when running.
func (s *Supervisor) snapshot(ctx context.Context) (ServiceInfo, error) {
	alive, err := s.probe.Alive(ctx)
	if err != nil {
		return ServiceInfo{}, err
	}
	info := ServiceInfo{Status: statusOf(alive), CollectedAt: s.now()}
	if !alive {
		return info, nil
	}

	if v, _, err := s.version(ctx); err != nil {
		slog.Debug("snapshot: version unavailable", "error", err)
	} else {
		info.Version = &v
	}

	if res, err := s.resources.Sample(ctx); err != nil {
		slog.Debug("snapshot: resource sample unavailable", "error", err)
	} else {
		up := res.Uptime(info.CollectedAt)
		info.Uptime = &up
		cpu, mem := round1(res.CPUPercent), round1(res.MemoryPercent)
		info.CPUUsage, info.MemoryUsage = &cpu, &mem
	}

	s.fillConnections(ctx, &info)
	return info, nil
}

func (s *Supervisor) fillConnections(ctx context.Context, info *ServiceInfo) {
	sample, err := s.status.Fetch(ctx)
	switch {
	case errors.Is(err, stubstatus.ErrPageAbsent):
		// Running without a reachable status page reports zero traffic.
		var zero uint64
		a, t, r := zero, zero, zero
		info.ActiveConnections, info.TotalConnections, info.RequestsPerSecond = &a, &t, &r
		slog.Debug("snapshot: status page unreachable", "error", err)
		return
	case err != nil:
		slog.Debug("snapshot: status page unusable", "error", err)
		return
	}
	if sample.Has(stubstatus.FieldActive) {
		v := sample.Active
		info.ActiveConnections = &v
	}
	if sample.Has(stubstatus.FieldAccepts) {
		v := sample.Accepts
		info.TotalConnections = &v
	}
	if sample.Has(stubstatus.FieldRequests) {
		v := sample.RequestsPerSecond
		info.RequestsPerSecond = &v
	}
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
