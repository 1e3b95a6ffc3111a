package services

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

func TestPoolSize(t *testing.T) {
	assert.Equal(t, 1, PoolSize(0))
	assert.Equal(t, 1, PoolSize(-3))
	assert.Equal(t, 1, PoolSize(1))
	assert.Equal(t, 2*runtime.NumCPU(), PoolSize(100000))
}

func TestDispatcher_RunsAllTasks(t *testing.T) {
	d := NewDispatcher(context.Background(), 4)
	var count atomic.Int32

	for i := 0; i < 200; i++ {
		require.NoError(t, d.Submit(func(context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(200), count.Load())
}

func TestDispatcher_CallerRunsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(context.Background(), 1)
	require.Equal(t, 1, d.Size())

	started := make(chan struct{})
	release := make(chan struct{})

	// occupies the only worker
	require.NoError(t, d.Submit(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// fills the queue
	require.NoError(t, d.Submit(func(context.Context) error { return nil }))

	var inline bool
	require.NoError(t, d.Submit(func(context.Context) error {
		inline = true
		return nil
	}))
	assert.True(t, inline, "task should have run on the submitting goroutine")

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcher_SubmitAfterShutdown(t *testing.T) {
	d := NewDispatcher(context.Background(), 2)
	require.NoError(t, d.Shutdown(context.Background()))

	err := d.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrDispatcherClosed)
}

func TestDispatcher_FatalErrorCancelsRun(t *testing.T) {
	d := NewDispatcher(context.Background(), 2)
	fatal := errors.New("boom")

	require.NoError(t, d.Submit(func(context.Context) error { return fatal }))

	err := d.Shutdown(context.Background())
	assert.ErrorIs(t, err, fatal)
	assert.Error(t, d.Context().Err())
	assert.ErrorIs(t, context.Cause(d.Context()), fatal)
}

func TestDispatcher_ShutdownTimeoutForceCancels(t *testing.T) {
	d := NewDispatcher(context.Background(), 1, WithShutdownTimeout(50*time.Millisecond))
	cancelled := make(chan struct{})

	require.NoError(t, d.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return nil
	}))

	err := d.Shutdown(context.Background())
	assert.ErrorIs(t, err, domain.ErrInterrupted)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight task was not cancelled")
	}
}

func TestDispatcher_InterruptDuringShutdown(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(parent, 1)
	started := make(chan struct{})

	require.NoError(t, d.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}))
	<-started

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := d.Shutdown(parent)
	assert.ErrorIs(t, err, domain.ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_SubmitAfterInterrupt(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(parent, 1)
	cancel()

	err := d.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrInterrupted)

	assert.ErrorIs(t, d.Shutdown(context.Background()), domain.ErrInterrupted)
}
