package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Ensure RunStore implements both history ports.
var (
	_ driven.RunStore   = (*RunStore)(nil)
	_ driven.FailureLog = (*RunStore)(nil)
)

// RunStore is an in-memory implementation of driven.RunStore and
// driven.FailureLog.
type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]domain.CrawlRun
	failures []domain.Failure
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.CrawlRun),
	}
}

// SaveRun creates or updates a run.
func (s *RunStore) SaveRun(_ context.Context, run domain.CrawlRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// LastRun returns the most recently started run.
func (s *RunStore) LastRun(_ context.Context) (*domain.CrawlRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.CrawlRun
	for _, r := range s.runs {
		if last == nil || r.StartedAt.After(last.StartedAt) {
			r := r
			last = &r
		}
	}
	if last == nil {
		return nil, domain.ErrNotFound
	}
	return last, nil
}

// Record appends a failure for the run carried by ctx.
func (s *RunStore) Record(ctx context.Context, kind domain.ErrorKind, label string, cause error) {
	f := domain.Failure{
		RunID:      domain.RunIDFrom(ctx),
		Kind:       kind,
		Label:      label,
		RecordedAt: time.Now(),
	}
	if cause != nil {
		f.Message = cause.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// Failures returns the failures recorded for a run, oldest first.
func (s *RunStore) Failures(_ context.Context, runID string) ([]domain.Failure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Failure
	for _, f := range s.failures {
		if f.RunID == runID {
			out = append(out, f)
		}
	}
	return out, nil
}
