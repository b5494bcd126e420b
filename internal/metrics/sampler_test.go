package metrics

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_NoMatchingProcess(t *testing.T) {
	res, err := Sampler{Binary: "definitely-not-running-xyz"}.Sample(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Running)
	assert.Empty(t, res.PIDs)
	assert.Zero(t, res.CPUPercent)
	assert.Zero(t, res.MemoryPercent)
	assert.Equal(t, UptimeStopped, res.Uptime(time.Now()))
}

func TestSampler_OwnProcess(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	res, err := Sampler{Binary: filepath.Base(exe)}.Sample(context.Background())
	require.NoError(t, err)
	require.True(t, res.Running)
	assert.Contains(t, res.PIDs, int32(os.Getpid()))
	assert.GreaterOrEqual(t, res.MemoryPercent, 0.0)
	if res.StartKnown {
		assert.LessOrEqual(t, res.StartUnix, time.Now().Unix())
	}
}

type countingPool struct{ calls atomic.Int32 }

func (p *countingPool) Do(ctx context.Context, fn func() error) error {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

func TestSampler_RunsOnPool(t *testing.T) {
	pool := &countingPool{}
	res, err := Sampler{Binary: "definitely-not-running-xyz", Pool: pool}.Sample(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Running)
	assert.Equal(t, int32(1), pool.calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Sampler{Binary: "nginx", Pool: pool}.Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
