package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/ngxvisor/internal/history"
)

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()

	events := []history.Event{
		{Operation: "start", Outcome: "started", Success: true, Binary: "nginx", OccurredAt: time.Now().UTC()},
		{Operation: "stop", Outcome: "stop failed: no pid", Success: false, Binary: "nginx", OccurredAt: time.Now().UTC()},
		{Operation: "start", Outcome: "already running", Success: true, Binary: "nginx", OccurredAt: time.Now().UTC()},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send %s event: %v", e.Operation, err)
		}
	}

	n, err := sink.Count(ctx, "start")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 start events, got %d", n)
	}
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	event := history.Event{Operation: "restart", Outcome: "reloaded", Success: true, Binary: "nginx", OccurredAt: time.Now().UTC()}
	if err := sink.Send(ctx, event); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
	n, err := sink.Count(ctx, "restart")
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 restart event, got %d (%v)", n, err)
	}
}

func TestSQLiteSink_ContextCancellation(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event := history.Event{Operation: "stop", Outcome: "stopped", Success: true, Binary: "nginx", OccurredAt: time.Now().UTC()}
	if err := sink.Send(ctx, event); err == nil {
		t.Error("expected error with cancelled context")
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
