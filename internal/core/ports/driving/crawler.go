package driving

import (
	"context"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// Crawler runs crawls over the configured resource families.
type Crawler interface {
	// Crawl runs one crawl to completion and returns its run record.
	// The run is returned even when err is non-nil.
	Crawl(ctx context.Context) (*domain.CrawlRun, error)

	// Status returns the state of the current run.
	Status(ctx context.Context) *CrawlStatus
}

// CrawlStatus represents the current state of a crawl.
type CrawlStatus struct {
	// RunID identifies the run, empty when idle.
	RunID string

	// Running indicates if a crawl is in progress.
	Running bool

	// Stats are the counters so far.
	Stats domain.CrawlStats
}
