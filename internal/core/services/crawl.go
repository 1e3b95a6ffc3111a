package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Ensure CrawlOrchestrator implements the interface.
var _ driving.Crawler = (*CrawlOrchestrator)(nil)

// resetter is implemented by collaborators holding per-run caches.
type resetter interface {
	Reset()
}

// CrawlDeps are the collaborators of a CrawlOrchestrator.
// Filter, Resolver, Mapper, Failures and Runs are optional.
type CrawlDeps struct {
	Walkers   map[domain.ResourceFamily]driven.FamilyWalker
	Source    driven.LeafSource
	Filter    driven.LeafFilter
	Resolver  driven.IdentityResolver
	Extractor driven.ContentExtractor
	Mapper    driven.FieldMapper
	Sink      driven.OutputSink
	Failures  driven.FailureLog
	Runs      driven.RunStore
}

// CrawlOrchestrator runs crawls: it walks every enabled family and dispatches
// each leaf to the record builder.
type CrawlOrchestrator struct {
	deps     CrawlDeps
	settings domain.CrawlSettings
	walker   *TreeWalker

	mu      sync.RWMutex
	running bool
	runID   string
	tracker *StatsTracker
}

// NewCrawlOrchestrator creates an orchestrator.
func NewCrawlOrchestrator(deps CrawlDeps, settings domain.CrawlSettings) *CrawlOrchestrator {
	return &CrawlOrchestrator{
		deps:     deps,
		settings: settings,
		walker:   NewTreeWalker(deps.Walkers),
	}
}

// Crawl runs one crawl.
//
//nolint:gocognit // Orchestration function with necessary sequential steps
func (o *CrawlOrchestrator) Crawl(ctx context.Context) (*domain.CrawlRun, error) {
	// 1. Guard against concurrent runs
	run := &domain.CrawlRun{ID: uuid.NewString(), StartedAt: time.Now()}
	tracker := NewStatsTracker(o.deps.Failures)
	if err := o.begin(run.ID, tracker); err != nil {
		return nil, err
	}
	defer o.end()

	ctx = domain.WithRunID(ctx, run.ID)
	log := logger.With(zap.String("run", run.ID))
	log.Info("crawl started", zap.Int("threads", PoolSize(o.settings.Threads)))
	o.saveRun(ctx, run)

	// 2. Wire the pipeline
	builder := NewRecordBuilder(RecordBuilderDeps{
		Source:      o.deps.Source,
		Filter:      o.deps.Filter,
		Extractor:   o.deps.Extractor,
		Mapper:      o.deps.Mapper,
		Sink:        o.deps.Sink,
		Permissions: NewPermissionAggregator(o.deps.Resolver, o.settings.Roles()),
		Tracker:     tracker,
	}, o.settings)

	dispatcher := NewDispatcher(ctx, o.settings.Threads, WithShutdownTimeout(o.settings.ShutdownTimeout))
	runCtx := dispatcher.Context()

	// 3. Walk each enabled family
	var walkErr error
	for _, family := range o.settings.EnabledFamilies() {
		if !o.walker.Has(family) {
			logger.Debug("no walker for family %s, skipping", family)
			continue
		}
		summary, err := o.walker.Walk(runCtx, family, func(handle domain.ResourceHandle) error {
			return dispatcher.Submit(func(taskCtx context.Context) error {
				return builder.Build(taskCtx, handle)
			})
		})
		log.Info("family walked",
			zap.String("family", string(family)),
			zap.Int("roots", summary.Roots),
			zap.Int("leaves", summary.Leaves),
			zap.Int("skipped", summary.Skipped),
			zap.Int("abandoned", summary.Abandoned))
		if err != nil {
			walkErr = err
			break
		}
	}

	// 4. Drain in-flight work
	err := dispatcher.Shutdown(ctx)
	if err == nil && walkErr != nil {
		err = walkErr
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrInterrupted, err)
		}
	}

	// 5. Release per-run caches
	if o.deps.Resolver != nil {
		o.deps.Resolver.Reset()
	}
	if r, ok := o.deps.Source.(resetter); ok {
		r.Reset()
	}

	// 6. Record the run
	run.FinishedAt = time.Now()
	run.Stats = tracker.Snapshot()
	if err != nil {
		run.Err = err.Error()
	}
	o.saveRun(context.WithoutCancel(ctx), run)

	log.Info("crawl finished",
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
		zap.Int64("finished", run.Stats.Finished),
		zap.Int64("discarded", run.Stats.Discarded),
		zap.Int64("failed", run.Stats.Failed()),
		zap.Error(err))
	return run, err
}

// Status returns the state of the current run.
func (o *CrawlOrchestrator) Status(_ context.Context) *driving.CrawlStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	status := &driving.CrawlStatus{RunID: o.runID, Running: o.running}
	if o.tracker != nil {
		status.Stats = o.tracker.Snapshot()
	}
	return status
}

func (o *CrawlOrchestrator) begin(runID string, tracker *StatsTracker) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return domain.ErrCrawlInProgress
	}
	o.running = true
	o.runID = runID
	o.tracker = tracker
	return nil
}

func (o *CrawlOrchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
}

func (o *CrawlOrchestrator) saveRun(ctx context.Context, run *domain.CrawlRun) {
	if o.deps.Runs == nil {
		return
	}
	if err := o.deps.Runs.SaveRun(ctx, *run); err != nil {
		logger.Warn("save crawl run %s: %v", run.ID, err)
	}
}
