package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngxvisor",
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Number of lifecycle operations by outcome.",
		}, []string{"op", "outcome"},
	)
	serverUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "up",
			Help:      "Whether the supervised server was detected running (1) or not (0).",
		},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Active connections reported by the status page.",
		},
	)
	acceptedConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "accepted_connections",
			Help:      "Cumulative accepted connections reported by the status page.",
		},
	)
	requestsPerSecond = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "requests_per_second_estimate",
			Help:      "Total requests divided by a fixed 60 second window.",
		},
	)
	cpuPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "cpu_percent",
			Help:      "CPU usage summed over master and worker processes.",
		},
	)
	memoryPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "memory_percent",
			Help:      "Resident memory of master and worker processes as a percentage of physical memory.",
		},
	)

	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "state_transitions_total",
			Help:      "Number of observed transitions between server states.",
		}, []string{"from", "to"},
	)

	currentStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ngxvisor",
			Subsystem: "server",
			Name:      "current_state",
			Help:      "Current observed state of the server (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{operations, serverUp, activeConnections, acceptedConnections,
		requestsPerSecond, cpuPercent, memoryPercent, stateTransitions, currentStates}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncOperation(op, outcome string) {
	if regOK.Load() {
		operations.WithLabelValues(op, outcome).Inc()
	}
}

func SetUp(up bool) {
	if regOK.Load() {
		serverUp.Set(boolValue(up))
	}
}

func SetConnections(active, accepted, rps uint64) {
	if regOK.Load() {
		activeConnections.Set(float64(active))
		acceptedConnections.Set(float64(accepted))
		requestsPerSecond.Set(float64(rps))
	}
}

func SetResource(cpu, mem float64) {
	if regOK.Load() {
		cpuPercent.Set(cpu)
		memoryPercent.Set(mem)
	}
}

func RecordStateTransition(from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(from, to).Inc()
	}
}

func SetCurrentState(state string, active bool) {
	if regOK.Load() {
		currentStates.WithLabelValues(state).Set(boolValue(active))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
