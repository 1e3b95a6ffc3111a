package services

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// DoneHook is called once per item when its key is closed.
type DoneHook func(handle domain.ResourceHandle, final domain.StatsState)

// StatsTracker counts item lifecycle transitions for one crawl run and routes
// failures to the failure log. It is safe for concurrent use by distinct keys.
type StatsTracker struct {
	failures driven.FailureLog
	onDone   DoneHook

	begun, prepared, evaluated, finished atomic.Int64
	discarded, accessErrs, exceptions    atomic.Int64
	done                                 atomic.Int64
}

// NewStatsTracker creates a tracker. failures may be nil.
func NewStatsTracker(failures driven.FailureLog) *StatsTracker {
	return &StatsTracker{failures: failures}
}

// OnDone registers a hook run when each key is closed. Call before Begin.
func (t *StatsTracker) OnDone(hook DoneHook) {
	t.onDone = hook
}

// Begin opens a key for one leaf.
func (t *StatsTracker) Begin(handle domain.ResourceHandle) *StatsKey {
	t.begun.Add(1)
	return &StatsKey{tracker: t, handle: handle, state: domain.StateBegin}
}

// Snapshot returns the current counters.
func (t *StatsTracker) Snapshot() domain.CrawlStats {
	return domain.CrawlStats{
		Begun:            t.begun.Load(),
		Prepared:         t.prepared.Load(),
		Evaluated:        t.evaluated.Load(),
		Finished:         t.finished.Load(),
		Discarded:        t.discarded.Load(),
		AccessExceptions: t.accessErrs.Load(),
		Exceptions:       t.exceptions.Load(),
		Done:             t.done.Load(),
	}
}

// StatsKey carries the lifecycle of one leaf. Callers defer Done right after Begin.
type StatsKey struct {
	tracker *StatsTracker
	handle  domain.ResourceHandle

	mu    sync.Mutex
	state domain.StatsState
	once  sync.Once
}

// State returns the latest state.
func (k *StatsKey) State() domain.StatsState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// transition moves the key to next unless a terminal state was already reached.
func (k *StatsKey) transition(next domain.StatsState) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state.IsTerminal() || k.state == domain.StateDone {
		return false
	}
	k.state = next
	return true
}

// Prepared marks field assembly complete.
func (k *StatsKey) Prepared() {
	if k.transition(domain.StatePrepared) {
		k.tracker.prepared.Add(1)
	}
}

// Evaluated marks the field mapping complete.
func (k *StatsKey) Evaluated() {
	if k.transition(domain.StateEvaluated) {
		k.tracker.evaluated.Add(1)
	}
}

// Finished marks the record as handed to the sink.
func (k *StatsKey) Finished() {
	if k.transition(domain.StateFinished) {
		k.tracker.finished.Add(1)
	}
}

// Discarded marks the item as intentionally skipped.
func (k *StatsKey) Discarded(reason string) {
	if k.transition(domain.StateDiscarded) {
		k.tracker.discarded.Add(1)
		logger.Debug("discarded %s: %s", k.handle.Label(), reason)
	}
}

// AccessException records a permission or availability failure.
func (k *StatsKey) AccessException(ctx context.Context, err error) {
	if k.transition(domain.StateAccessException) {
		k.tracker.accessErrs.Add(1)
		k.record(ctx, domain.ErrorKindAccess, err)
	}
}

// Exception records any other failure, classified by its cause.
func (k *StatsKey) Exception(ctx context.Context, err error) {
	if k.transition(domain.StateException) {
		k.tracker.exceptions.Add(1)
		k.record(ctx, domain.ClassifyError(err), err)
	}
}

func (k *StatsKey) record(ctx context.Context, kind domain.ErrorKind, err error) {
	label := k.handle.Label()
	logger.With(zap.String("label", label), zap.String("kind", string(kind)), zap.Error(err)).Warn("item failed")
	if k.tracker.failures != nil {
		k.tracker.failures.Record(context.WithoutCancel(ctx), kind, label, err)
	}
}

// Done closes the key. Only the first call has any effect.
func (k *StatsKey) Done() {
	k.once.Do(func() {
		k.mu.Lock()
		final := k.state
		k.state = domain.StateDone
		k.mu.Unlock()

		k.tracker.done.Add(1)
		if k.tracker.onDone != nil {
			k.tracker.onDone(k.handle, final)
		}
	})
}
