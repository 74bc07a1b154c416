package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tahmid-khan/cvc-approximation/pkg/acquire"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/httputil"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

// defaultReport is the TSV written by prepare when neither flag nor config
// names one.
const defaultReport = "graphs.tsv"

type prepareOpts struct {
	pipelineFlags
	tsv          string
	downloadDir  string
	zipSizeLimit int64
	keep         bool
	limit        int
}

// prepareCommand creates the prepare command.
func (c *CLI) prepareCommand() *cobra.Command {
	var opts prepareOpts

	cmd := &cobra.Command{
		Use:   "prepare [index]",
		Short: "Download, canonicalize and report the graphs of an index",
		Long: `Prepare reads an index (a local TSV file or a URL) listing graph archives,
skips entries whose stated size or order is out of range, downloads and
unpacks the rest, canonicalizes the first usable graph file of each, and
writes a TSV report row for every accepted graph.

The index defaults to acquire.index in the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions(cmd, &opts.pipelineFlags)
			if err != nil {
				return err
			}
			src := c.cfg.Acquire.Index
			if len(args) == 1 {
				src = args[0]
			}
			if src == "" {
				return errs.New(errs.ErrCodeInvalidInput, "no index given and acquire.index is not set")
			}
			return c.runPrepare(cmd, src, popts, &opts)
		},
	}

	opts.register(cmd.Flags(), true)
	cmd.Flags().StringVar(&opts.tsv, "report", "", "TSV report path (default from config, "+defaultReport+")")
	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "", "where archives are downloaded and unpacked")
	cmd.Flags().Int64Var(&opts.zipSizeLimit, "zip-size-limit", 0, "skip archives larger than this many bytes")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "keep downloads and extracted files")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "process at most this many index entries (0 = all)")

	return cmd
}

func (c *CLI) runPrepare(cmd *cobra.Command, src string, popts pipeline.Options, opts *prepareOpts) error {
	ctx := cmd.Context()
	changed := cmd.Flags().Changed

	acfg := c.cfg.Acquire
	if changed("download-dir") {
		acfg.DownloadDir = opts.downloadDir
	}
	if changed("keep") {
		acfg.Keep = opts.keep
	}
	filter := c.cfg.Filter()
	if changed("zip-size-limit") {
		filter.ZipSizeLimit = opts.zipSizeLimit
	}

	fetcher, err := c.newFetcher(acfg.DownloadDir, acfg.IndexTTL)
	if err != nil {
		return err
	}
	entries, err := c.loadIndex(ctx, fetcher, src)
	if err != nil {
		return err
	}
	if opts.limit > 0 && len(entries) > opts.limit {
		entries = entries[:opts.limit]
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	tsv := opts.tsv
	if tsv == "" && c.cfg.Report.TSV == "" {
		tsv = defaultReport
	}
	sink, err := c.newSink(ctx, tsv)
	if err != nil {
		return err
	}

	p := &acquire.Preparer{
		Fetcher: fetcher,
		Runner:  runner,
		Sink:    sink,
		Filter:  filter,
		Keep:    acfg.Keep,
		Logger:  c.Logger,
	}
	prog := newProgress(c.Logger)
	results, err := p.Prepare(ctx, entries, popts, nil)
	if sink != nil {
		if cerr := sink.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}

	prog.done("Prepared " + plural(len(results), "entry"))
	printPrepareSummary(c.Out, results, popts.OutputDir)
	return nil
}

func (c *CLI) newFetcher(dir string, indexTTL time.Duration) (*acquire.Fetcher, error) {
	f := acquire.NewFetcher(dir)
	f.Logger = c.Logger
	if c.noCache || indexTTL <= 0 {
		return f, nil
	}
	cacheDir, err := indexCacheDir()
	if err != nil {
		c.Logger.Warn("index cache disabled", "err", err)
		return f, nil
	}
	idx, err := httputil.NewCache(cacheDir, indexTTL)
	if err != nil {
		return nil, err
	}
	f.Index = idx
	return f, nil
}

func (c *CLI) loadIndex(ctx context.Context, f *acquire.Fetcher, src string) ([]acquire.Entry, error) {
	spinner := newSpinnerWithContext(ctx, c.Out, "Loading index...")
	spinner.Start()
	entries, err := f.LoadIndex(ctx, src)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return nil, err
		}
		spinner.StopWithError("Could not load index")
		return nil, err
	}
	spinner.StopWithSuccess("Loaded " + plural(len(entries), "index entry"))
	return entries, nil
}
