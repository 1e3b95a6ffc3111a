package services

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockResolver implements driven.IdentityResolver over fixed maps.
type mockResolver struct {
	users  map[string]string
	groups map[string]string
	resets atomic.Int32
}

func (m *mockResolver) ResolvePrincipalName(_ context.Context, id string) (string, bool) {
	name, ok := m.users[id]
	return name, ok
}

func (m *mockResolver) ResolveGroupName(_ context.Context, id string) (string, bool) {
	name, ok := m.groups[id]
	return name, ok
}

func (m *mockResolver) ClassifyUser(_ context.Context, id string) domain.UserType {
	if _, ok := m.users[id]; ok {
		return domain.UserTypeUser
	}
	if _, ok := m.groups[id]; ok {
		return domain.UserTypeGroup
	}
	return domain.UserTypeUnknown
}

func (m *mockResolver) GroupIDsForEmail(_ context.Context, email string) []string {
	var ids []string
	for id, name := range m.groups {
		if name == email {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *mockResolver) Reset() { m.resets.Add(1) }

// mockSource implements driven.LeafSource.
type mockSource struct {
	mu     sync.Mutex
	descs  map[string]*driven.LeafDescription
	errs   map[string]error
	calls  int
	resets int
}

func (m *mockSource) Describe(_ context.Context, h domain.ResourceHandle) (*driven.LeafDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[h.ID]; ok {
		return nil, err
	}
	if d, ok := m.descs[h.ID]; ok {
		return d, nil
	}
	return &driven.LeafDescription{Fields: domain.OutputRecord{domain.FieldTitle: h.Name}}, nil
}

func (m *mockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

// mockExtractor returns the raw content as text.
type mockExtractor struct {
	calls atomic.Int32
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, r io.Reader, _ string, _ int64) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(r)
	return string(b), err
}

// mockMapper evaluates expressions as plain field references.
type mockMapper struct {
	err error
}

func (m *mockMapper) Evaluate(exprs map[string]string, ctx map[string]any) (domain.OutputRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := domain.OutputRecord{}
	for name, ref := range exprs {
		if v, ok := ctx[ref]; ok {
			out[name] = v
		}
	}
	return out, nil
}

type storedRecord struct {
	meta   domain.RecordMetadata
	record domain.OutputRecord
}

// mockSink implements driven.OutputSink.
type mockSink struct {
	mu      sync.Mutex
	records []storedRecord
	err     error
}

func (m *mockSink) Store(_ context.Context, meta domain.RecordMetadata, record domain.OutputRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, storedRecord{meta: meta, record: record})
	return nil
}

func (m *mockSink) all() []storedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storedRecord(nil), m.records...)
}

type failureEntry struct {
	runID string
	kind  domain.ErrorKind
	label string
	cause error
}

// mockFailures implements driven.FailureLog.
type mockFailures struct {
	mu      sync.Mutex
	entries []failureEntry
}

func (m *mockFailures) Record(ctx context.Context, kind domain.ErrorKind, label string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, failureEntry{runID: domain.RunIDFrom(ctx), kind: kind, label: label, cause: cause})
}

func (m *mockFailures) all() []failureEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]failureEntry(nil), m.entries...)
}

// mockRuns implements driven.RunStore.
type mockRuns struct {
	mu   sync.Mutex
	runs map[string]domain.CrawlRun
}

func (m *mockRuns) SaveRun(_ context.Context, run domain.CrawlRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[string]domain.CrawlRun{}
	}
	m.runs[run.ID] = run
	return nil
}

func (m *mockRuns) LastRun(context.Context) (*domain.CrawlRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *domain.CrawlRun
	for _, r := range m.runs {
		r := r
		if last == nil || r.StartedAt.After(last.StartedAt) {
			last = &r
		}
	}
	if last == nil {
		return nil, domain.ErrNotFound
	}
	return last, nil
}

func (m *mockRuns) Failures(context.Context, string) ([]domain.Failure, error) {
	return nil, nil
}

// mockFamily implements driven.FamilyWalker over an in-memory tree.
// Nodes of type "leaf" are leaves, "both" are leaves with children, and
// everything else is a container.
type mockFamily struct {
	family   domain.ResourceFamily
	roots    []driven.Node
	rootsErr error
	children map[string][]driven.Node
	errs     map[string]error
}

func (m *mockFamily) Family() domain.ResourceFamily { return m.family }

func (m *mockFamily) Roots(context.Context) ([]driven.Node, error) {
	return m.roots, m.rootsErr
}

func (m *mockFamily) Children(_ context.Context, parent driven.Node, emit func(driven.Node) error) error {
	for _, child := range m.children[parent.ID] {
		child.Path = parent.ChildPath()
		if err := emit(child); err != nil {
			return err
		}
	}
	return m.errs[parent.ID]
}

func (m *mockFamily) Leaf(n driven.Node) (domain.ResourceHandle, bool) {
	if n.Type != "leaf" && n.Type != "both" {
		return domain.ResourceHandle{}, false
	}
	return domain.ResourceHandle{
		ID:     n.ID,
		Kind:   domain.KindDriveItem,
		Family: m.family,
		Path:   n.Path,
		Name:   n.Name,
	}, true
}

func (m *mockFamily) IsContainer(n driven.Node) bool {
	return n.Type != "leaf"
}

func node(typ, id string) driven.Node {
	return driven.Node{Type: typ, ID: id, Name: id}
}

func handle(id string) domain.ResourceHandle {
	return domain.ResourceHandle{
		ID:     id,
		Kind:   domain.KindDriveItem,
		Family: domain.FamilyDrive,
		Path:   []domain.PathSegment{{Kind: "drive", ID: "d1"}},
		Name:   id,
	}
}
