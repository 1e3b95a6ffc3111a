package domain

import (
	"context"
	"time"
)

// Well-known field names in an OutputRecord.
const (
	FieldID       = "id"
	FieldURL      = "url"
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldRoles    = "roles"
	FieldKind     = "kind"
	FieldFamily   = "family"
	FieldModified = "modified"
	FieldCreated  = "created"
	FieldAuthor   = "author"
	FieldSize     = "size"
	FieldParent   = "parent"
)

// OutputRecord maps field names to values.
type OutputRecord map[string]any

// MergeRecords merges layers in order; later layers win on key collision.
// Nil layers are skipped and inputs are never modified.
func MergeRecords(layers ...OutputRecord) OutputRecord {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	out := make(OutputRecord, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// String returns the field as a string, or "" when absent or not a string.
func (r OutputRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// RecordMetadata accompanies a record to the output sink.
type RecordMetadata struct {
	// DocumentID is stable across runs for the same resource.
	DocumentID string

	// RunID identifies the crawl run that produced the record.
	RunID string

	// Label is the resource audit label.
	Label string

	Kind   ResourceKind
	Family ResourceFamily

	// CrawledAt is when the record was built.
	CrawledAt time.Time
}

// Failure is one entry of the failure log.
type Failure struct {
	RunID      string
	Kind       ErrorKind
	Label      string
	Message    string
	RecordedAt time.Time
}

type runIDKey struct{}

// WithRunID returns a context carrying the crawl run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the crawl run id carried by ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
