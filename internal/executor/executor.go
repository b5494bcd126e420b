package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds the number of blocking OS calls in flight at once.
const DefaultWorkers = 8

// pipeDrainDelay bounds how long Run waits for inherited stdio pipes to close
// after the launched program exited. Daemonizing servers may leave a forked
// child holding them open.
const pipeDrainDelay = 2 * time.Second

// ErrExec reports that a program could not be spawned at all.
var ErrExec = errors.New("exec failed")

// Result is the captured outcome of one program invocation.
// A non-zero exit is reported here, not as an error.
type Result struct {
	Success  bool
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner is the subset of Executor used by collaborators; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, program string, args []string, workdir string) (Result, error)
	Do(ctx context.Context, fn func() error) error
}

// Executor offloads blocking work onto a bounded set of goroutines.
// Callers wait for completion but only as long as their ctx allows; work that
// has already started is never killed and completes in the background.
type Executor struct {
	sem *semaphore.Weighted
}

func New(workers int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Executor{sem: semaphore.NewWeighted(int64(workers))}
}

// Do runs fn on a pool slot and returns its error. If ctx ends first, Do
// returns ctx.Err() while fn keeps its slot until it finishes.
func (e *Executor) Do(ctx context.Context, fn func() error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer e.sem.Release(1)
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes program with args in workdir and captures its exit status and output.
func (e *Executor) Run(ctx context.Context, program string, args []string, workdir string) (Result, error) {
	var res Result
	err := e.Do(ctx, func() error {
		r, err := run(program, args, workdir)
		res = r
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Detach starts program without waiting for it (fire and forget). The child is
// placed in its own session where supported and reaped in the background.
func (e *Executor) Detach(program string, args ...string) error {
	// #nosec G204
	cmd := exec.Command(program, args...)
	configureDetached(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExec, program, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func run(program string, args []string, workdir string) (Result, error) {
	// ok: program is the configured supervised binary or a fixed OS utility
	// #nosec G204
	cmd := exec.Command(program, args...)
	cmd.Dir = workdir
	cmd.WaitDelay = pipeDrainDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		res.Success = true
		return res, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
		return res, nil
	}
	return Result{}, fmt.Errorf("%w: %s: %v", ErrExec, program, err)
}
