// Package cli implements the graphprep command-line interface.
//
// # Commands
//
//   - process: canonicalize local .mtx and .edges files into buckets
//   - prepare: download an index of archives, then process and report them
//   - canon: print the canonical form of one file
//   - stats: summarize files without writing anything
//   - render: draw a graph as SVG or DOT
//   - serve: run the HTTP service
//   - cache: manage the result cache
//
// # Configuration
//
// Defaults come from graphprep.toml (or --config); flags override it.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tahmid-khan/cvc-approximation/pkg/buildinfo"
	"github.com/tahmid-khan/cvc-approximation/pkg/cache"
	"github.com/tahmid-khan/cvc-approximation/pkg/config"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/report"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "graphprep"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output such as canonical text. Defaults to
	// os.Stdout.
	Out io.Writer

	configPath string
	noCache    bool
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "graphprep curates graph datasets for vertex cover experiments",
		Long:         `graphprep reads graphs in Matrix Market (.mtx) and edge-list (.edges) form, rejects the unusable ones, and writes the rest in a canonical text form grouped by order.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the result cache")

	root.AddCommand(c.processCommand())
	root.AddCommand(c.prepareCommand())
	root.AddCommand(c.canonCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, nil, c.Logger)
	r.TTL = c.cfg.Cache.TTL
	return r, nil
}

func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, c.cfg.Cache.RedisURL)
	}
	dir, err := c.resultCacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newSink opens the report sinks named in the config, with tsv overriding
// the configured TSV path. It returns nil when no sink is configured.
func (c *CLI) newSink(ctx context.Context, tsv string) (report.Sink, error) {
	if tsv == "" {
		tsv = c.cfg.Report.TSV
	}
	var sinks report.MultiSink
	if tsv != "" {
		s, err := report.CreateTSV(tsv)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if uri := c.cfg.Report.MongoURI; uri != "" {
		s, err := report.NewMongoSink(ctx, uri, c.cfg.Report.MongoDatabase, c.cfg.Report.MongoCollection)
		if err != nil {
			_ = sinks.Close(ctx)
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/graphprep/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// resultCacheDir is the file cache directory: the configured one, or
// <cacheDir>/results.
func (c *CLI) resultCacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "results"), nil
}

// indexCacheDir holds downloaded index files.
func indexCacheDir() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index"), nil
}
