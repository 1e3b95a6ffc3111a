// Package app wires the adapters, the Graph connector and the core services
// behind the command line.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/extract"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/mapping"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/transport/graphhttp"
	"github.com/custodia-labs/sercha-graph/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-graph/internal/connectors/msgraph"
	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/core/services"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// App holds the state shared by the command factories.
type App struct {
	mu      sync.Mutex
	dataDir string
}

// New creates an App. An empty dataDir is derived from the config location.
func New(dataDir string) *App {
	return &App{dataDir: dataDir}
}

// Deps returns the factories for cli.Configure.
func (a *App) Deps() cli.Deps {
	return cli.Deps{
		OpenConfig:  a.OpenConfig,
		OpenSession: a.OpenSession,
		OpenHistory: a.OpenHistory,
	}
}

// OpenConfig loads config.toml from dir; the data directory sits next to it.
func (a *App) OpenConfig(dir string) (driven.ConfigStore, error) {
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	if a.dataDir == "" {
		a.dataDir = filepath.Join(filepath.Dir(store.Path()), "data")
	}
	a.mu.Unlock()
	return store, nil
}

// OpenHistory opens the local run history.
func (a *App) OpenHistory(_ context.Context) (driven.RunStore, func(), error) {
	store, err := sqlite.NewStore(a.dir())
	if err != nil {
		return nil, nil, err
	}
	return store.RunStore(), closer(store.Close), nil
}

// OpenSession builds a crawler from the resolved options.
//
//nolint:gocognit // Wiring function with necessary sequential steps
func (a *App) OpenSession(ctx context.Context, opts cli.CrawlOptions) (*cli.Session, error) {
	// 1. Settings
	cfg, err := msgraph.ParseConfig(opts.Values)
	if err != nil {
		return nil, err
	}
	mapper := mapping.New()
	if err := mapper.Validate(opts.Mapping); err != nil {
		return nil, fmt.Errorf("fields.mapping: %w", err)
	}
	cfg.DefaultFields = domain.OutputRecord(opts.Defaults)
	cfg.FieldMapping = opts.Mapping

	// 2. Graph access
	transport, err := graphhttp.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := msgraph.NewClient(transport, cfg.PageSize)
	resolver, err := msgraph.NewIdentityResolver(client, cfg.CacheMaxSize, msgraph.DefaultBackoff())
	if err != nil {
		return nil, err
	}
	source, err := msgraph.NewLeafSource(client, cfg.CacheMaxSize)
	if err != nil {
		return nil, err
	}

	// 3. Outputs
	out, err := a.outputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	crawler := services.NewCrawlOrchestrator(services.CrawlDeps{
		Walkers:   msgraph.Walkers(client, cfg),
		Source:    source,
		Filter:    cfg,
		Resolver:  resolver,
		Extractor: extract.New(),
		Mapper:    mapper,
		Sink:      out.sink,
		Failures:  out.failures,
		Runs:      out.runs,
	}, cfg.CrawlSettings)

	logger.Debug("crawl session ready: cloud=%s sink=%s dry-run=%t", cfg.Cloud, opts.Sink, opts.DryRun)
	return &cli.Session{Crawler: crawler, Runs: out.runs, Close: out.close}, nil
}

type outputs struct {
	sink     driven.OutputSink
	failures driven.FailureLog
	runs     driven.RunStore
	close    func()
}

func (a *App) outputs(ctx context.Context, opts cli.CrawlOptions) (*outputs, error) {
	if opts.DryRun {
		history := memory.NewRunStore()
		return &outputs{
			sink:     memory.NewDocumentSink(),
			failures: history,
			runs:     history,
			close:    func() {},
		}, nil
	}

	// Run history and the failure log always stay local
	store, err := sqlite.NewStore(a.dir())
	if err != nil {
		return nil, err
	}
	out := &outputs{
		sink:     store.Sink(),
		failures: store.FailureLog(),
		runs:     store.RunStore(),
		close:    closer(store.Close),
	}

	if opts.Sink == cli.SinkPostgres {
		pg, err := postgres.Open(ctx, opts.PostgresDSN)
		if err != nil {
			out.close()
			return nil, err
		}
		out.sink = pg
		out.close = func() {
			pg.Close()
			closer(store.Close)()
		}
	}
	return out, nil
}

func (a *App) dir() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dataDir
}

func closer(fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}
}
