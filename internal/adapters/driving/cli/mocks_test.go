package cli

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driving"
)

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	mu   sync.Mutex
	data map[string]any
	err  error
}

func newMockConfigStore(data map[string]any) *mockConfigStore {
	if data == nil {
		data = make(map[string]any)
	}
	return &mockConfigStore{data: data}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func (m *mockConfigStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockConfigStore) Section(prefix string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix+".") {
			out[strings.TrimPrefix(k, prefix+".")] = v
		}
	}
	return out
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Save() error  { return m.err }
func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "/tmp/sercha-graph/config.toml" }

var _ driven.ConfigStore = (*mockConfigStore)(nil)

// mockCrawler implements driving.Crawler for testing.
type mockCrawler struct {
	run *domain.CrawlRun
	err error
}

func (m *mockCrawler) Crawl(_ context.Context) (*domain.CrawlRun, error) {
	return m.run, m.err
}

func (m *mockCrawler) Status(_ context.Context) *driving.CrawlStatus {
	return &driving.CrawlStatus{}
}

// mockRunStore implements driven.RunStore for testing.
type mockRunStore struct {
	last     *domain.CrawlRun
	failures map[string][]domain.Failure
}

func (m *mockRunStore) SaveRun(_ context.Context, _ domain.CrawlRun) error { return nil }

func (m *mockRunStore) LastRun(_ context.Context) (*domain.CrawlRun, error) {
	if m.last == nil {
		return nil, domain.ErrNotFound
	}
	return m.last, nil
}

func (m *mockRunStore) Failures(_ context.Context, runID string) ([]domain.Failure, error) {
	if runID == "broken" {
		return nil, errors.New("disk on fire")
	}
	return m.failures[runID], nil
}

// setupCLITest installs deps and a config store, and restores globals afterwards.
func setupCLITest(t *testing.T, d Deps, store driven.ConfigStore) *bytes.Buffer {
	t.Helper()
	oldDeps, oldStore := deps, configStore
	oldTerminal := isTerminal
	deps, configStore = d, store
	isTerminal = func() bool { return false }

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	t.Cleanup(func() {
		deps, configStore = oldDeps, oldStore
		isTerminal = oldTerminal
		crawlSet, crawlDryRun, crawlSink, crawlPostgresDSN = nil, false, SinkSQLite, ""
		verbose, logFormat, configDir = false, "console", ""
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	return buf
}
