// Package oplog appends a human-readable record of every supervisor operation
// to the service log and forwards it to optional history sinks.
package oplog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/loykin/ngxvisor/internal/history"
)

// TimeLayout is the timestamp format of a record line.
const TimeLayout = "2006-01-02 15:04:05"

const sinkTimeout = 5 * time.Second

// Pool runs blocking work on a bounded set of goroutines.
type Pool interface {
	Do(ctx context.Context, fn func() error) error
}

// Writer appends "[YYYY-MM-DD HH:MM:SS] op: outcome" lines to Path.
// The file is opened per record so external truncation is always honoured.
// Failures are logged and never returned. The append runs on Pool when set.
type Writer struct {
	Path   string
	Binary string
	Sinks  []history.Sink
	Pool   Pool

	mu  sync.Mutex
	wg  sync.WaitGroup
	now func() time.Time
}

// New returns a Writer appending to path.
func New(path, binary string, sinks ...history.Sink) *Writer {
	return &Writer{Path: path, Binary: binary, Sinks: sinks, now: time.Now}
}

// Record appends one line and hands the event to every sink in the background.
func (w *Writer) Record(op, outcome string, success bool) {
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	at := now()
	line := FormatLine(at, op, outcome)

	write := func() error {
		w.mu.Lock()
		defer w.mu.Unlock()
		return appendLine(w.Path, line)
	}
	var err error
	if w.Pool != nil {
		err = w.Pool.Do(context.Background(), write)
	} else {
		err = write()
	}
	if err != nil {
		slog.Error("operation log write failed", "path", w.Path, "op", op, "error", err)
	}

	if len(w.Sinks) == 0 {
		return
	}
	ev := history.Event{Operation: op, Outcome: outcome, Success: success, Binary: w.Binary, OccurredAt: at}
	for _, s := range w.Sinks {
		w.wg.Add(1)
		go func(s history.Sink) {
			defer w.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()
			if err := s.Send(ctx, ev); err != nil {
				slog.Warn("history sink send failed", "op", op, "error", err)
			}
		}(s)
	}
}

// Flush waits for in-flight sink deliveries.
func (w *Writer) Flush() { w.wg.Wait() }

// Close flushes pending deliveries and closes sinks that support it.
func (w *Writer) Close() error {
	w.Flush()
	var first error
	for _, s := range w.Sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// FormatLine renders one record line including the trailing newline.
func FormatLine(at time.Time, op, outcome string) string {
	return fmt.Sprintf("[%s] %s: %s\n", at.Format(TimeLayout), op, outcome)
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
