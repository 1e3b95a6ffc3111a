package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driving"
)

// Sink names accepted by --sink.
const (
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
)

// envPrefix prefixes environment overrides of crawl settings.
const envPrefix = "SERCHA_GRAPH_"

// envKeys are the settings that may come from the environment.
var envKeys = []string{"tenant_id", "client_id", "client_secret"}

var (
	crawlSet         []string
	crawlDryRun      bool
	crawlSink        string
	crawlPostgresDSN string
)

// isTerminal reports whether progress can be redrawn in place.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the tenant and store records",
	Long: `Walks every enabled resource family and stores one record per leaf.

Settings come from the [crawl] section of the configuration file, then from
SERCHA_GRAPH_TENANT_ID, SERCHA_GRAPH_CLIENT_ID and SERCHA_GRAPH_CLIENT_SECRET,
then from --set. Keys under fields.defaults and fields.mapping may also be
set with --set.

Interrupting the command (Ctrl+C) stops the walk, waits for in-flight items
and records the run as interrupted.`,
	Example: `  sercha-graph crawl
  sercha-graph crawl --set threads=8 --set crawl_chats=true
  sercha-graph crawl --set 'fields.mapping.title=$name | "untitled"'
  sercha-graph crawl --sink postgres --postgres-dsn postgres://localhost/search`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringArrayVar(&crawlSet, "set", nil, "override a setting (key=value, repeatable)")
	crawlCmd.Flags().BoolVar(&crawlDryRun, "dry-run", false, "crawl without persisting records")
	crawlCmd.Flags().StringVar(&crawlSink, "sink", SinkSQLite, "record sink: sqlite or postgres")
	crawlCmd.Flags().StringVar(&crawlPostgresDSN, "postgres-dsn", "", "PostgreSQL connection string for --sink postgres")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	if deps.OpenSession == nil {
		return errors.New("crawler not configured")
	}

	opts, err := crawlOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := deps.OpenSession(ctx, opts)
	if err != nil {
		return fmt.Errorf("preparing crawl: %w", err)
	}
	if session.Close != nil {
		defer session.Close()
	}

	if opts.DryRun {
		cmd.Println("Dry run: records will not be persisted.")
	}
	cmd.Println("Crawling...")

	run, err := crawlWithProgress(ctx, cmd, session.Crawler)
	if run != nil {
		printRun(cmd, run)
	}
	if errors.Is(err, domain.ErrInterrupted) {
		cmd.Println("Crawl interrupted.")
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

// crawlOptions resolves configuration, environment and flags.
func crawlOptions() (CrawlOptions, error) {
	opts := CrawlOptions{
		Values:      make(map[string]any),
		Defaults:    make(map[string]any),
		Mapping:     make(map[string]string),
		DryRun:      crawlDryRun,
		Sink:        crawlSink,
		PostgresDSN: crawlPostgresDSN,
	}

	switch opts.Sink {
	case SinkSQLite, SinkPostgres:
	default:
		return opts, fmt.Errorf("%w: unknown sink %q", domain.ErrInvalidInput, opts.Sink)
	}

	// 1. Configuration file
	if configStore != nil {
		for k, v := range configStore.Section("crawl") {
			opts.Values[k] = v
		}
		for k, v := range configStore.Section("fields.defaults") {
			opts.Defaults[k] = v
		}
		for k, v := range configStore.Section("fields.mapping") {
			opts.Mapping[k] = fmt.Sprint(v)
		}
	}

	// 2. Environment
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(envPrefix + strings.ToUpper(k)); ok && v != "" {
			opts.Values[k] = v
		}
	}

	// 3. Flags
	overrides, err := parseOverrides(crawlSet)
	if err != nil {
		return opts, err
	}
	for k, v := range overrides {
		switch {
		case strings.HasPrefix(k, "fields.defaults."):
			opts.Defaults[strings.TrimPrefix(k, "fields.defaults.")] = v
		case strings.HasPrefix(k, "fields.mapping."):
			opts.Mapping[strings.TrimPrefix(k, "fields.mapping.")] = v
		default:
			opts.Values[strings.TrimPrefix(k, "crawl.")] = v
		}
	}

	if opts.Sink == SinkPostgres && opts.PostgresDSN == "" && !opts.DryRun {
		return opts, fmt.Errorf("%w: --postgres-dsn is required with --sink postgres", domain.ErrInvalidInput)
	}
	return opts, nil
}

// parseOverrides splits key=value pairs.
func parseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: --set %q is not key=value", domain.ErrInvalidInput, p)
		}
		out[k] = v
	}
	return out, nil
}

// crawlWithProgress runs the crawl while redrawing the counters on a terminal.
func crawlWithProgress(ctx context.Context, cmd *cobra.Command, crawler driving.Crawler) (*domain.CrawlRun, error) {
	type result struct {
		run *domain.CrawlRun
		err error
	}
	done := make(chan result, 1)
	go func() {
		run, err := crawler.Crawl(ctx)
		done <- result{run, err}
	}()

	if !isTerminal() {
		r := <-done
		return r.run, r.err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case r := <-done:
			if last > 0 {
				cmd.Println()
			}
			return r.run, r.err
		case <-ticker.C:
			status := crawler.Status(ctx)
			if status == nil || !status.Running || status.Stats.Done == last {
				continue
			}
			last = status.Stats.Done
			cmd.Printf("\rProcessed %d of %d items (%d failed)", status.Stats.Done, status.Stats.Begun, status.Stats.Failed())
		}
	}
}

func printRun(cmd *cobra.Command, run *domain.CrawlRun) {
	st := run.Stats
	cmd.Printf("Run %s\n", run.ID)
	if !run.FinishedAt.IsZero() {
		cmd.Printf("  Took:       %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	cmd.Printf("  Stored:     %d\n", st.Finished)
	cmd.Printf("  Discarded:  %d\n", st.Discarded)
	cmd.Printf("  No access:  %d\n", st.AccessExceptions)
	cmd.Printf("  Errors:     %d\n", st.Exceptions)
	if st.Failed() > 0 {
		cmd.Printf("Run 'sercha-graph failures %s' to list failed items.\n", run.ID)
	}
}
