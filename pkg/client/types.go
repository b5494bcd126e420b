package client

import "time"

// ServiceInfo mirrors the daemon's status snapshot. Optional fields are nil
// when the value could not be obtained or the server is stopped.
type ServiceInfo struct {
	Status            string    `json:"status"`
	Version           *string   `json:"version"`
	Uptime            *string   `json:"uptime"`
	CPUUsage          *float64  `json:"cpu_usage"`
	MemoryUsage       *float64  `json:"memory_usage"`
	ActiveConnections *uint64   `json:"active_connections"`
	TotalConnections  *uint64   `json:"total_connections"`
	RequestsPerSecond *uint64   `json:"requests_per_second"`
	CollectedAt       time.Time `json:"collected_at"`
}

// LogsQuery represents query parameters for the logs endpoint
type LogsQuery struct {
	Kind   string
	Lines  int
	Search string
	Level  string
}

// Event is one status-change notification from /events.
type Event struct {
	Kind string       `json:"kind"`
	Op   string       `json:"op,omitempty"`
	Info *ServiceInfo `json:"info,omitempty"`
	At   time.Time    `json:"at"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type logsResponse struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type existsResponse struct {
	Kind   string `json:"kind"`
	Exists bool   `json:"exists"`
}
