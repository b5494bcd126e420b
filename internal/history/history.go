package history

import (
	"context"
	"time"
)

// Event is one recorded lifecycle or log operation, exported to external systems.
type Event struct {
	Operation  string    `json:"operation"`
	Outcome    string    `json:"outcome"`
	Success    bool      `json:"success"`
	Binary     string    `json:"binary"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// DefaultTable is the table or index name used when a DSN does not name one.
const DefaultTable = "operation_history"
