package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// handleKey is the mapping context entry describing the resource itself.
const handleKey = "handle"

// documentNamespace scopes document ids derived from resource labels.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sercha-graph/documents"))

// RecordBuilder turns one leaf into an output record.
type RecordBuilder struct {
	source    driven.LeafSource
	filter    driven.LeafFilter
	extractor driven.ContentExtractor
	mapper    driven.FieldMapper
	sink      driven.OutputSink
	perms     *PermissionAggregator
	tracker   *StatsTracker
	settings  domain.CrawlSettings
	now       func() time.Time
}

// RecordBuilderDeps are the collaborators of a RecordBuilder.
// Filter and Mapper are optional.
type RecordBuilderDeps struct {
	Source      driven.LeafSource
	Filter      driven.LeafFilter
	Extractor   driven.ContentExtractor
	Mapper      driven.FieldMapper
	Sink        driven.OutputSink
	Permissions *PermissionAggregator
	Tracker     *StatsTracker
}

// NewRecordBuilder creates a record builder.
func NewRecordBuilder(deps RecordBuilderDeps, settings domain.CrawlSettings) *RecordBuilder {
	return &RecordBuilder{
		source:    deps.Source,
		filter:    deps.Filter,
		extractor: deps.Extractor,
		mapper:    deps.Mapper,
		sink:      deps.Sink,
		perms:     deps.Permissions,
		tracker:   deps.Tracker,
		settings:  settings,
		now:       time.Now,
	}
}

// DocumentID returns the stable document id of a resource.
func DocumentID(handle domain.ResourceHandle) string {
	return uuid.NewSHA1(documentNamespace, []byte(handle.Label())).String()
}

// Build runs the record pipeline for one leaf. Per-item failures are recorded
// on the tracker; the returned error is non-nil only when the failure must
// abort the run.
//
//nolint:gocognit // Pipeline with per-stage failure handling
func (b *RecordBuilder) Build(ctx context.Context, handle domain.ResourceHandle) error {
	key := b.tracker.Begin(handle)
	defer key.Done()

	// 1. Filter
	if b.filter != nil {
		if ok, reason := b.filter.Allow(handle); !ok {
			key.Discarded(reason)
			return nil
		}
	}

	// 2. Describe the resource
	desc, err := b.source.Describe(ctx, handle)
	if err != nil {
		return b.fail(ctx, key, fmt.Errorf("describe: %w", err))
	}
	if desc.Discard != "" {
		key.Discarded(desc.Discard)
		return nil
	}

	// 3. Permissions
	roles := b.perms.Aggregate(ctx, desc.Grants, b.settings.DefaultFields)

	// 4. Content, size ceiling first
	content, err := b.content(ctx, desc.Content)
	if err != nil {
		return b.fail(ctx, key, err)
	}

	resource := domain.MergeRecords(desc.Fields, domain.OutputRecord{
		domain.FieldRoles: roles,
	})
	if content != "" {
		resource[domain.FieldContent] = content
	}
	record := domain.MergeRecords(b.settings.DefaultFields, resource)
	key.Prepared()

	// 5. Field mapping
	if b.mapper != nil && len(b.settings.FieldMapping) > 0 {
		mapped, err := b.mapper.Evaluate(b.settings.FieldMapping, mappingContext(record, handle))
		if err != nil {
			return b.fail(ctx, key, fmt.Errorf("field mapping: %w", err))
		}
		record = domain.MergeRecords(record, mapped)
	}
	key.Evaluated()

	if record.String(domain.FieldURL) == "" {
		logger.Debug("no url for %s, storing anyway", handle.Label())
	}

	// 6. Hand off
	meta := domain.RecordMetadata{
		DocumentID: DocumentID(handle),
		RunID:      domain.RunIDFrom(ctx),
		Label:      handle.Label(),
		Kind:       handle.Kind,
		Family:     handle.Family,
		CrawledAt:  b.now(),
	}
	if err := b.sink.Store(ctx, meta, record); err != nil {
		// Sink failures are recorded but never abort the run.
		key.Exception(ctx, fmt.Errorf("store: %w", err))
		return nil
	}
	key.Finished()
	return nil
}

// content fetches and extracts a leaf's content. Content over the ceiling
// is rejected before it is opened.
func (b *RecordBuilder) content(ctx context.Context, cd driven.ContentDescriptor) (string, error) {
	if !cd.HasContent() {
		return "", nil
	}
	maxLength := b.settings.MaxContentLength
	if maxLength >= 0 && cd.Length > maxLength {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrContentTooLarge, cd.Length, maxLength)
	}

	rc, err := cd.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open content: %w", err)
	}
	defer rc.Close()

	text, err := b.extractor.Extract(ctx, rc, cd.Filename, maxLength)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", cd.Filename, err)
	}
	return text, nil
}

// fail routes a per-item error to the tracker and decides whether it is fatal.
func (b *RecordBuilder) fail(ctx context.Context, key *StatsKey, err error) error {
	if ctx.Err() != nil {
		key.Discarded("run cancelled")
		return nil
	}

	switch domain.ClassifyError(err) {
	case domain.ErrorKindNotFound:
		key.Discarded("not found")
		return nil
	case domain.ErrorKindAccess:
		key.AccessException(ctx, err)
		return nil
	case domain.ErrorKindProcessing:
		key.Exception(ctx, err)
		if !b.settings.IgnoreErrors {
			return err
		}
		return nil
	default:
		key.Exception(ctx, err)
		return nil
	}
}

func mappingContext(record domain.OutputRecord, handle domain.ResourceHandle) map[string]any {
	path := make([]any, 0, len(handle.Path))
	for _, seg := range handle.Path {
		path = append(path, map[string]any{
			"kind":    seg.Kind,
			"id":      seg.ID,
			"name":    seg.Name,
			"web_url": seg.WebURL,
		})
	}

	ctx := make(map[string]any, len(record)+1)
	for k, v := range record {
		ctx[k] = v
	}
	ctx[handleKey] = map[string]any{
		"id":      handle.ID,
		"kind":    string(handle.Kind),
		"family":  string(handle.Family),
		"name":    handle.Name,
		"web_url": handle.WebURL,
		"label":   handle.Label(),
		"path":    path,
	}
	return ctx
}
