//go:build !windows

package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	e := New(2)
	res, err := e.Run(context.Background(), "/bin/sh", []string{"-c", "echo out; echo err 1>&2; exit 3"}, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
}

func TestRun_Success(t *testing.T) {
	e := New(1)
	res, err := e.Run(context.Background(), "/bin/sh", []string{"-c", "true"}, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRun_UsesWorkdir(t *testing.T) {
	dir := t.TempDir()
	e := New(1)
	res, err := e.Run(context.Background(), "/bin/sh", []string{"-c", "pwd"}, dir)
	require.NoError(t, err)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(res.Stdout)))
	want, _ := filepath.EvalSymlinks(dir)
	assert.Equal(t, want, got)
}

func TestRun_MissingProgram(t *testing.T) {
	e := New(1)
	_, err := e.Run(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExec))
}

func TestDo_BoundsConcurrency(t *testing.T) {
	e := New(2)
	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Do(context.Background(), func() error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDo_ContextEndsWhileWaitingForSlot(t *testing.T) {
	e := New(1)
	release := make(chan struct{})
	go func() {
		_ = e.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := e.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestDo_InFlightWorkCompletesAfterCallerGivesUp(t *testing.T) {
	e := New(1)
	finished := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := e.Do(ctx, func() error {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("in-flight work was abandoned")
	}
}

func TestDetach_ReturnsImmediately(t *testing.T) {
	e := New(1)
	start := time.Now()
	require.NoError(t, e.Detach("/bin/sh", "-c", "sleep 1"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDetach_MissingProgram(t *testing.T) {
	e := New(1)
	err := e.Detach(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrExec)
}
