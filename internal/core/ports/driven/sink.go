package driven

import (
	"context"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// OutputSink receives finished records.
// A Store error is logged by the core and routed to the failure log;
// it never aborts the run.
type OutputSink interface {
	Store(ctx context.Context, meta domain.RecordMetadata, record domain.OutputRecord) error
}

// FailureLog receives per-item failures so they can be retried later.
type FailureLog interface {
	Record(ctx context.Context, kind domain.ErrorKind, label string, cause error)
}

// RunStore persists crawl run history.
type RunStore interface {
	// SaveRun creates or updates a run.
	SaveRun(ctx context.Context, run domain.CrawlRun) error

	// LastRun returns the most recently started run.
	// Returns domain.ErrNotFound when no run exists.
	LastRun(ctx context.Context) (*domain.CrawlRun, error)

	// Failures returns the failures recorded for a run.
	Failures(ctx context.Context, runID string) ([]domain.Failure, error)
}
