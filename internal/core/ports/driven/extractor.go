package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// ContentExtractor converts binary content into plain text.
type ContentExtractor interface {
	// Extract reads r and returns its text.
	// filename selects the format by extension. maxLength is the content
	// ceiling in bytes (<0 disables); implementations must not read more than
	// that. Content, or archive parts expanding, past maxLength wraps
	// domain.ErrContentTooLarge; other failures wrap domain.ErrExtractionFailed.
	Extract(ctx context.Context, r io.Reader, filename string, maxLength int64) (string, error)
}

// FieldMapper evaluates mapping expressions against a context map.
type FieldMapper interface {
	// Evaluate returns one output field per expression name.
	Evaluate(exprs map[string]string, ctx map[string]any) (domain.OutputRecord, error)
}
