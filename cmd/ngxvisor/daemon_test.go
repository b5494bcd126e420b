package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPidFileRoundTrip(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "ngxvisor.pid")

	if err := writePidFile(pidFile, os.Getpid()); err != nil {
		t.Fatalf("writePidFile failed: %v", err)
	}
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		t.Fatal("PID file was not created")
	}
	if err := removePidFile(pidFile); err != nil {
		t.Fatalf("removePidFile failed: %v", err)
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Fatal("PID file was not removed")
	}
	if err := removePidFile(""); err != nil {
		t.Fatalf("empty pid file should be a no-op: %v", err)
	}
}

func TestDaemonArgs(t *testing.T) {
	in := []string{"serve", "a.toml", "--daemonize", "--logfile", "/tmp/out.log", "--pidfile=/tmp/old.pid", "--listen", ":8081"}
	got := daemonArgs(in, "/run/ngxvisor.pid")
	want := []string{"serve", "a.toml", "--listen", ":8081", "--pidfile", "/run/ngxvisor.pid"}
	if len(got) != len(want) {
		t.Fatalf("daemonArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("daemonArgs = %v, want %v", got, want)
		}
	}
}
