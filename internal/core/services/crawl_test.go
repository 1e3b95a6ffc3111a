package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

type crawlFixture struct {
	resolver *mockResolver
	source   *mockSource
	sink     *mockSink
	failures *mockFailures
	runs     *mockRuns
	settings domain.CrawlSettings
	walkers  map[domain.ResourceFamily]driven.FamilyWalker
}

func newCrawlFixture() *crawlFixture {
	settings := domain.DefaultCrawlSettings()
	settings.ShutdownTimeout = 5 * time.Second
	return &crawlFixture{
		resolver: &mockResolver{users: map[string]string{"12345": "Jane Doe"}},
		source:   &mockSource{descs: map[string]*driven.LeafDescription{}, errs: map[string]error{}},
		sink:     &mockSink{},
		failures: &mockFailures{},
		runs:     &mockRuns{},
		settings: settings,
		walkers: map[domain.ResourceFamily]driven.FamilyWalker{
			domain.FamilyDrive: &mockFamily{
				family: domain.FamilyDrive,
				roots:  []driven.Node{node("drive", "d1")},
				children: map[string][]driven.Node{
					"d1": {node("leaf", "f1"), node("folder", "dir"), node("leaf", "f2")},
					"dir": {node("leaf", "f3")},
				},
			},
			domain.FamilySite: &mockFamily{
				family: domain.FamilySite,
				roots:  []driven.Node{node("site", "gone"), node("site", "s1")},
				children: map[string][]driven.Node{
					"s1": {node("leaf", "item1")},
				},
				errs: map[string]error{"gone": domain.ErrNotFound},
			},
		},
	}
}

func (f *crawlFixture) orchestrator() *CrawlOrchestrator {
	return NewCrawlOrchestrator(CrawlDeps{
		Walkers:   f.walkers,
		Source:    f.source,
		Resolver:  f.resolver,
		Extractor: &mockExtractor{},
		Mapper:    &mockMapper{},
		Sink:      f.sink,
		Failures:  f.failures,
		Runs:      f.runs,
	}, f.settings)
}

func TestCrawl_ProcessesEveryEnabledFamily(t *testing.T) {
	f := newCrawlFixture()
	f.source.descs["f1"] = &driven.LeafDescription{
		Fields: domain.OutputRecord{domain.FieldTitle: "one"},
		Grants: []domain.Grant{domain.UserGrant("12345")},
	}
	o := f.orchestrator()

	run, err := o.Crawl(context.Background())

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.NotEmpty(t, run.ID)
	assert.Len(t, f.sink.all(), 4)
	assert.Equal(t, int64(4), run.Stats.Begun)
	assert.Equal(t, int64(4), run.Stats.Finished)
	assert.Equal(t, int64(4), run.Stats.Done)
	assert.False(t, run.FinishedAt.IsZero())

	for _, s := range f.sink.all() {
		assert.Equal(t, run.ID, s.meta.RunID)
		if s.meta.Label == "drive-item:drive/d1/f1" {
			assert.Equal(t, []string{"12345", "Jane Doe"}, s.record[domain.FieldRoles])
		}
	}

	saved, err := f.runs.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID, saved.ID)
	assert.Equal(t, int64(4), saved.Stats.Finished)

	assert.Equal(t, int32(1), f.resolver.resets.Load())
	assert.Equal(t, 1, f.source.resets)
	assert.False(t, o.Status(context.Background()).Running)
}

func TestCrawl_DisabledFamiliesSkipped(t *testing.T) {
	f := newCrawlFixture()
	f.settings.CrawlSites = false

	run, err := f.orchestrator().Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), run.Stats.Finished)
}

func TestCrawl_IgnoredErrorsDoNotAbort(t *testing.T) {
	f := newCrawlFixture()
	f.source.errs["f2"] = errors.New("bad payload")

	run, err := f.orchestrator().Crawl(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), run.Stats.Finished)
	assert.Equal(t, int64(1), run.Stats.Exceptions)

	entries := f.failures.all()
	require.Len(t, entries, 1)
	assert.Equal(t, run.ID, entries[0].runID)
	assert.Equal(t, "drive-item:drive/d1/f2", entries[0].label)
}

func TestCrawl_FatalErrorAbortsRun(t *testing.T) {
	f := newCrawlFixture()
	f.settings.IgnoreErrors = false
	f.settings.Threads = 1
	f.source.errs["f1"] = errors.New("bad payload")

	run, err := f.orchestrator().Crawl(context.Background())

	require.Error(t, err)
	require.NotNil(t, run)
	assert.NotEmpty(t, run.Err)
	assert.Equal(t, run.Stats.Begun, run.Stats.Done)

	saved, lerr := f.runs.LastRun(context.Background())
	require.NoError(t, lerr)
	assert.NotEmpty(t, saved.Err)
}

func TestCrawl_InterruptedRun(t *testing.T) {
	f := newCrawlFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.orchestrator().Crawl(ctx)

	assert.ErrorIs(t, err, domain.ErrInterrupted)
	require.NotNil(t, run)
	assert.Zero(t, run.Stats.Finished)
}

func TestCrawl_RejectsConcurrentRun(t *testing.T) {
	f := newCrawlFixture()
	o := f.orchestrator()
	require.NoError(t, o.begin("other", NewStatsTracker(nil)))

	_, err := o.Crawl(context.Background())
	assert.ErrorIs(t, err, domain.ErrCrawlInProgress)

	status := o.Status(context.Background())
	assert.True(t, status.Running)
	assert.Equal(t, "other", status.RunID)
}
