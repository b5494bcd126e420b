package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestHelpListsCommands(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help should succeed: %v", err)
	}
	for _, name := range []string{"serve", "start", "stop", "restart", "test", "status", "info", "version", "logs", "clear-log", "log-exists", "open-logs", "events"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("help output missing %q: %s", name, out.String())
		}
	}
}

func TestClearLogRequiresKind(t *testing.T) {
	root := buildRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"clear-log"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected missing --kind error")
	}
}

func TestUnreachableDaemon(t *testing.T) {
	root := buildRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"status", "--api-url", "http://127.0.0.1:1/api", "--api-timeout", "1s"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "daemon not reachable") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}
