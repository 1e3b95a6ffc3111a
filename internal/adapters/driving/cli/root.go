// Package cli provides the sercha-graph command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

var version = "dev"

// Session is one configured crawler plus the history it writes to.
type Session struct {
	Crawler driving.Crawler

	// Runs is nil when the session keeps no history.
	Runs driven.RunStore

	// Close releases the session's stores. May be nil.
	Close func()
}

// CrawlOptions are the resolved inputs of a crawl command.
type CrawlOptions struct {
	// Values are the crawl.* settings, --set overrides applied.
	Values map[string]any

	// Defaults and Mapping come from fields.defaults.* and fields.mapping.*.
	Defaults map[string]any
	Mapping  map[string]string

	DryRun      bool
	Sink        string
	PostgresDSN string
}

// Deps are the factories the commands use to reach the core.
type Deps struct {
	OpenConfig  func(dir string) (driven.ConfigStore, error)
	OpenSession func(ctx context.Context, opts CrawlOptions) (*Session, error)
	OpenHistory func(ctx context.Context) (driven.RunStore, func(), error)
}

var (
	deps        Deps
	configStore driven.ConfigStore

	configDir string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sercha-graph",
	Short: "Crawl Microsoft 365 content into search records",
	Long: `sercha-graph walks OneDrive, OneNote, SharePoint, Teams and chats through
Microsoft Graph and stores one record per file, page, list item or message,
together with the principals allowed to read it.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.sercha-graph)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatConsole, "log format: console or json")
}

// Configure installs the factories used by the commands.
func Configure(d Deps) {
	deps = d
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	defer logger.Sync()
	return rootCmd.Execute()
}

func setup(_ *cobra.Command, _ []string) error {
	switch logFormat {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	logger.SetFormat(logFormat)
	logger.SetVerbose(verbose)

	if deps.OpenConfig == nil {
		return nil
	}
	store, err := deps.OpenConfig(configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	configStore = store
	return nil
}

func requireConfig() (driven.ConfigStore, error) {
	if configStore == nil {
		return nil, errors.New("configuration not loaded")
	}
	return configStore, nil
}
