package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/ngxvisor/internal/metrics"
)

// ErrMonitorRunning is returned by StartMonitor when a monitor is already active.
var ErrMonitorRunning = errors.New("monitor already running")

// Monitor periodically snapshots the server, publishes the result to
// subscribers and keeps the prometheus gauges current.
type Monitor struct {
	sup      *Supervisor
	interval time.Duration
	last     atomic.Pointer[ServiceInfo]

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StartMonitor launches the background monitor. It runs until ctx is done or
// Stop is called.
func (s *Supervisor) StartMonitor(ctx context.Context) (*Monitor, error) {
	s.monMu.Lock()
	defer s.monMu.Unlock()
	if s.monitor != nil {
		return nil, ErrMonitorRunning
	}
	m := &Monitor{sup: s, interval: s.interval, stop: make(chan struct{})}
	s.monitor = m
	m.wg.Add(1)
	go m.run(ctx)
	slog.Info("status monitor started", "interval", m.interval)
	return m, nil
}

// Current returns the monitor's last snapshot. ok is false before the first
// tick or when no monitor is running.
func (s *Supervisor) Current() (ServiceInfo, bool) {
	s.monMu.Lock()
	m := s.monitor
	s.monMu.Unlock()
	if m == nil {
		return ServiceInfo{}, false
	}
	return m.Current()
}

// Current returns the last stored snapshot.
func (m *Monitor) Current() (ServiceInfo, bool) {
	p := m.last.Load()
	if p == nil {
		return ServiceInfo{}, false
	}
	return *p, true
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	defer m.detach()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("status monitor stopped", "reason", ctx.Err())
			return
		case <-m.stop:
			slog.Info("status monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) detach() {
	s := m.sup
	s.monMu.Lock()
	if s.monitor == m {
		s.monitor = nil
	}
	s.monMu.Unlock()
}

func (m *Monitor) tick(ctx context.Context) {
	s := m.sup
	tctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	info, err := s.snapshot(tctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("status monitor: process check failed", "error", err)
		s.observed.observe(ctx, nil)
		info = s.stoppedInfo()
	} else {
		running := info.Status == StatusRunning
		s.observed.observe(ctx, &running)
	}
	exportGauges(info)

	m.last.Store(&info)
	snap := info
	s.bus.publish(Event{Kind: EventSnapshot, Info: &snap, At: info.CollectedAt})
}

func exportGauges(info ServiceInfo) {
	metrics.SetUp(info.Status == StatusRunning)
	metrics.SetConnections(deref(info.ActiveConnections), deref(info.TotalConnections), deref(info.RequestsPerSecond))
	metrics.SetResource(deref(info.CPUUsage), deref(info.MemoryUsage))
}

func deref[T uint64 | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
