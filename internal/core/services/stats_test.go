package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

func TestStatsKey_HappyPath(t *testing.T) {
	tracker := NewStatsTracker(nil)

	key := tracker.Begin(handle("a"))
	key.Prepared()
	key.Evaluated()
	key.Finished()
	key.Done()

	s := tracker.Snapshot()
	assert.Equal(t, int64(1), s.Begun)
	assert.Equal(t, int64(1), s.Prepared)
	assert.Equal(t, int64(1), s.Evaluated)
	assert.Equal(t, int64(1), s.Finished)
	assert.Equal(t, int64(1), s.Done)
	assert.Equal(t, domain.StateDone, key.State())
}

func TestStatsKey_DoneFiresOnce(t *testing.T) {
	tracker := NewStatsTracker(nil)
	var hooks int
	tracker.OnDone(func(domain.ResourceHandle, domain.StatsState) { hooks++ })

	key := tracker.Begin(handle("a"))
	key.Finished()
	key.Done()
	key.Done()
	key.Done()

	assert.Equal(t, int64(1), tracker.Snapshot().Done)
	assert.Equal(t, 1, hooks)
}

func TestStatsKey_DoneOnceUnderConcurrency(t *testing.T) {
	tracker := NewStatsTracker(nil)
	key := tracker.Begin(handle("a"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key.Done()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), tracker.Snapshot().Done)
}

func TestStatsKey_FirstTerminalStateWins(t *testing.T) {
	failures := &mockFailures{}
	tracker := NewStatsTracker(failures)
	var final domain.StatsState
	tracker.OnDone(func(_ domain.ResourceHandle, s domain.StatsState) { final = s })

	key := tracker.Begin(handle("a"))
	key.Discarded("filtered")
	key.Exception(context.Background(), errors.New("late"))
	key.Finished()
	key.Done()

	s := tracker.Snapshot()
	assert.Equal(t, int64(1), s.Discarded)
	assert.Zero(t, s.Exceptions)
	assert.Zero(t, s.Finished)
	assert.Equal(t, domain.StateDiscarded, final)
	assert.Empty(t, failures.all())
}

func TestStatsKey_ExceptionsRecordFailures(t *testing.T) {
	failures := &mockFailures{}
	tracker := NewStatsTracker(failures)
	ctx := domain.WithRunID(context.Background(), "run-1")

	access := tracker.Begin(handle("a"))
	access.AccessException(ctx, domain.ErrAccessDenied)
	access.Done()

	tooLarge := tracker.Begin(handle("b"))
	tooLarge.Exception(ctx, domain.ErrContentTooLarge)
	tooLarge.Done()

	entries := failures.all()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ErrorKindAccess, entries[0].kind)
	assert.Equal(t, "drive-item:drive/d1/a", entries[0].label)
	assert.Equal(t, "run-1", entries[0].runID)
	assert.Equal(t, domain.ErrorKindContentTooLarge, entries[1].kind)

	s := tracker.Snapshot()
	assert.Equal(t, int64(1), s.AccessExceptions)
	assert.Equal(t, int64(1), s.Exceptions)
	assert.Equal(t, int64(2), s.Failed())
}

func TestStatsKey_FailureLogIgnoresCancellation(t *testing.T) {
	failures := &mockFailures{}
	tracker := NewStatsTracker(failures)
	ctx, cancel := context.WithCancel(domain.WithRunID(context.Background(), "run-2"))
	cancel()

	key := tracker.Begin(handle("a"))
	key.Exception(ctx, errors.New("boom"))
	key.Done()

	entries := failures.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-2", entries[0].runID)
	assert.Equal(t, domain.ErrorKindProcessing, entries[0].kind)
}
