// Package ngxvisor supervises a single locally installed nginx-style server:
// lifecycle control, status snapshots, log access and an HTTP operation API.
package ngxvisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/ngxvisor/internal/config"
	"github.com/loykin/ngxvisor/internal/history"
	"github.com/loykin/ngxvisor/internal/history/factory"
	"github.com/loykin/ngxvisor/internal/logger"
	"github.com/loykin/ngxvisor/internal/metrics"
	iapi "github.com/loykin/ngxvisor/internal/server"
	"github.com/loykin/ngxvisor/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Supervisor = supervisor.Supervisor

type ServiceInfo = supervisor.ServiceInfo

type Status = supervisor.Status

type Event = supervisor.Event

type OpError = supervisor.OpError

type HistorySink = history.Sink

// Error kinds, for use with errors.Is.
var (
	ErrBinaryMissing      = supervisor.ErrBinaryMissing
	ErrProcessCheckFailed = supervisor.ErrProcessCheckFailed
	ErrStartFailed        = supervisor.ErrStartFailed
	ErrStopFailed         = supervisor.ErrStopFailed
	ErrRestartFailed      = supervisor.ErrRestartFailed
	ErrConfigInvalid      = supervisor.ErrConfigInvalid
	ErrInvalidLogKind     = supervisor.ErrInvalidLogKind
	ErrLogIOFailed        = supervisor.ErrLogIOFailed
	ErrMetricsUnavailable = supervisor.ErrMetricsUnavailable
)

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewLogger builds the daemon logger described by c.Log.
func NewLogger(c *Config) (*slog.Logger, io.Closer, error) { return logger.New(c.Log) }

// OpenSinks opens one history sink per DSN. Already opened sinks are closed
// when a later DSN fails.
func OpenSinks(dsns []string) ([]HistorySink, error) {
	sinks := make([]HistorySink, 0, len(dsns))
	for _, dsn := range dsns {
		s, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("audit sink %q: %w", dsn, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func closeSinks(sinks []HistorySink) {
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

// New builds a Supervisor from c, opening the configured audit sinks.
func New(c *Config) (*Supervisor, error) {
	if c == nil {
		return nil, errors.New("nil config")
	}
	sinks, err := OpenSinks(c.Audit.Sinks)
	if err != nil {
		return nil, err
	}
	s, err := supervisor.New(supervisor.Options{
		InstallDir:      c.InstallDir,
		Binary:          c.Binary,
		PIDFile:         c.PIDFile,
		ServiceLog:      c.ServiceLog,
		StatusURL:       c.StatusURL,
		StatusTimeout:   c.StatusTimeout,
		ProbeKind:       c.Probe,
		ProbeCommand:    c.ProbeCommand,
		MonitorInterval: c.MonitorInterval,
		Workers:         c.Workers,
		Sinks:           sinks,
	})
	if err != nil {
		closeSinks(sinks)
		return nil, err
	}
	return s, nil
}

// NewHTTPServer returns an HTTP server exposing the operation API for s.
func NewHTTPServer(addr, basePath string, s *Supervisor) *http.Server {
	return iapi.NewServer(addr, basePath, s)
}

// NewMetricsServer returns an HTTP server exposing /metrics on addr.
func NewMetricsServer(addr string) *http.Server { return iapi.NewMetricsServer(addr) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
