package cli

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

func finishedRun() *domain.CrawlRun {
	start := time.Now()
	return &domain.CrawlRun{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Stats:      domain.CrawlStats{Begun: 6, Finished: 4, Discarded: 1, AccessExceptions: 1, Done: 6},
	}
}

func TestCrawlCmd_Use(t *testing.T) {
	assert.Equal(t, "crawl", crawlCmd.Use)
	assert.NotNil(t, crawlCmd.Flags().Lookup("set"))
	assert.NotNil(t, crawlCmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, crawlCmd.Flags().Lookup("sink"))
}

func TestCrawlCmd_NotConfigured(t *testing.T) {
	setupCLITest(t, Deps{}, nil)
	rootCmd.SetArgs([]string{"crawl"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawler not configured")
}

func TestCrawlCmd_PrintsSummary(t *testing.T) {
	var got CrawlOptions
	buf := setupCLITest(t, Deps{
		OpenSession: func(_ context.Context, opts CrawlOptions) (*Session, error) {
			got = opts
			return &Session{Crawler: &mockCrawler{run: finishedRun()}}, nil
		},
	}, newMockConfigStore(map[string]any{
		"crawl.tenant_id":        "contoso",
		"crawl.threads":          int64(2),
		"fields.defaults.source": "m365",
		"fields.mapping.title":   "$name",
	}))
	rootCmd.SetArgs([]string{"crawl", "--set", "threads=8", "--set", "fields.mapping.url=$web_url", "--dry-run"})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "contoso", got.Values["tenant_id"])
	assert.Equal(t, "8", got.Values["threads"])
	assert.Equal(t, "m365", got.Defaults["source"])
	assert.Equal(t, map[string]string{"title": "$name", "url": "$web_url"}, got.Mapping)
	assert.True(t, got.DryRun)

	out := buf.String()
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "Stored:     4")
	assert.Contains(t, out, "sercha-graph failures run-1")
}

func TestCrawlCmd_EnvironmentCredentials(t *testing.T) {
	var got CrawlOptions
	setupCLITest(t, Deps{
		OpenSession: func(_ context.Context, opts CrawlOptions) (*Session, error) {
			got = opts
			return &Session{Crawler: &mockCrawler{run: finishedRun()}}, nil
		},
	}, newMockConfigStore(map[string]any{"crawl.client_secret": "from-file"}))
	t.Setenv("SERCHA_GRAPH_CLIENT_SECRET", "from-env")
	rootCmd.SetArgs([]string{"crawl"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "from-env", got.Values["client_secret"])
}

func TestCrawlCmd_Interrupted(t *testing.T) {
	closed := false
	buf := setupCLITest(t, Deps{
		OpenSession: func(context.Context, CrawlOptions) (*Session, error) {
			return &Session{
				Crawler: &mockCrawler{run: finishedRun(), err: fmt.Errorf("%w: context canceled", domain.ErrInterrupted)},
				Close:   func() { closed = true },
			}, nil
		},
	}, nil)
	rootCmd.SetArgs([]string{"crawl"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Contains(t, buf.String(), "Crawl interrupted.")
	assert.True(t, closed)
}

func TestCrawlCmd_SessionError(t *testing.T) {
	setupCLITest(t, Deps{
		OpenSession: func(context.Context, CrawlOptions) (*Session, error) {
			return nil, fmt.Errorf("invalid configuration: missing tenant_id")
		},
	}, nil)
	rootCmd.SetArgs([]string{"crawl"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tenant_id")
}

func TestCrawlCmd_UnknownSink(t *testing.T) {
	setupCLITest(t, Deps{
		OpenSession: func(context.Context, CrawlOptions) (*Session, error) {
			t.Fatal("session must not open")
			return nil, nil
		},
	}, nil)
	rootCmd.SetArgs([]string{"crawl", "--sink", "kafka"})

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCrawlCmd_PostgresNeedsDSN(t *testing.T) {
	setupCLITest(t, Deps{
		OpenSession: func(context.Context, CrawlOptions) (*Session, error) {
			return &Session{Crawler: &mockCrawler{}}, nil
		},
	}, nil)
	rootCmd.SetArgs([]string{"crawl", "--sink", "postgres"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--postgres-dsn")
}

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"threads=4", "fields.mapping.title=$a | \"b=c\"", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "4", got["threads"])
	assert.Equal(t, `$a | "b=c"`, got["fields.mapping.title"])
	assert.Equal(t, "", got["empty"])

	_, err = parseOverrides([]string{"novalue"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = parseOverrides([]string{"=x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
