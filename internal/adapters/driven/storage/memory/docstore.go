package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Ensure DocumentSink implements the interface.
var _ driven.OutputSink = (*DocumentSink)(nil)

// Document is a record held by DocumentSink.
type Document struct {
	Meta   domain.RecordMetadata
	Record domain.OutputRecord
}

// DocumentSink is an in-memory implementation of driven.OutputSink.
type DocumentSink struct {
	mu        sync.RWMutex
	documents map[string]Document
}

// NewDocumentSink creates a new in-memory document sink.
func NewDocumentSink() *DocumentSink {
	return &DocumentSink{
		documents: make(map[string]Document),
	}
}

// Store stores or replaces a record under its document id.
func (s *DocumentSink) Store(_ context.Context, meta domain.RecordMetadata, record domain.OutputRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[meta.DocumentID] = Document{Meta: meta, Record: domain.MergeRecords(record)}
	return nil
}

// Get retrieves a document by id.
func (s *DocumentSink) Get(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// Len returns the number of stored documents.
func (s *DocumentSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// List returns every stored document ordered by label.
func (s *DocumentSink) List() []Document {
	s.mu.RLock()
	out := make([]Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Meta.Label < out[j].Meta.Label })
	return out
}
