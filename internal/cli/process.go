package cli

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tahmid-khan/cvc-approximation/pkg/canon"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/report"
)

// pipelineFlags are the flags shared by process, prepare and stats. Only
// flags that were set override the config.
type pipelineFlags struct {
	out           string
	ordering      string
	minOrder      int
	maxOrder      int
	workers       int
	flat          bool
	refresh       bool
	integerLabels bool
}

func (f *pipelineFlags) register(flags *pflag.FlagSet, withOutput bool) {
	if withOutput {
		flags.StringVarP(&f.out, "out", "o", "", "output directory")
		flags.BoolVar(&f.flat, "flat", false, "write every graph to the output directory, ignoring buckets")
		flags.IntVarP(&f.workers, "workers", "j", 0, "files processed in parallel")
	}
	flags.StringVar(&f.ordering, "ordering", "", "edge ordering: lexicographic (default), insertion")
	flags.IntVar(&f.minOrder, "min-order", 0, "reject graphs with fewer vertices")
	flags.IntVar(&f.maxOrder, "max-order", 0, "reject graphs with more vertices (0 = unbounded)")
	flags.BoolVar(&f.refresh, "refresh", false, "ignore cached results")
	flags.BoolVar(&f.integerLabels, "integer-labels", false, "read edge-list labels as integers")
}

// pipelineOptions returns the config's pipeline options overridden by set flags.
func (c *CLI) pipelineOptions(cmd *cobra.Command, f *pipelineFlags) (pipeline.Options, error) {
	opts := c.cfg.PipelineOptions()
	changed := cmd.Flags().Changed

	if changed("out") {
		opts.OutputDir = f.out
	}
	if changed("ordering") {
		ord, err := canon.ParseOrdering(f.ordering)
		if err != nil {
			return opts, err
		}
		opts.Ordering = ord
	}
	if changed("min-order") {
		opts.Rules.MinOrder = f.minOrder
	}
	if changed("max-order") {
		opts.Rules.MaxOrder = f.maxOrder
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("flat") && f.flat {
		opts.Buckets = []pipeline.Bucket{}
	}
	opts.Refresh = f.refresh
	if changed("integer-labels") {
		opts.IntegerLabels = f.integerLabels
	}
	opts.Logger = c.Logger
	return opts, opts.ValidateAndSetDefaults()
}

type processOpts struct {
	pipelineFlags
	tsv string
	tui bool
}

// processCommand creates the process command.
func (c *CLI) processCommand() *cobra.Command {
	var opts processOpts

	cmd := &cobra.Command{
		Use:   "process [file|dir]...",
		Short: "Canonicalize graph files into order buckets",
		Long: `Process reads every .mtx and .edges file given (directories are searched
recursively), rejects graphs that are too small, edgeless or disconnected,
and writes the canonical form of the rest to <out>/<bucket>/<name>.txt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions(cmd, &opts.pipelineFlags)
			if err != nil {
				return err
			}
			paths, err := expandInputs(args)
			if err != nil {
				return err
			}
			return c.runProcess(cmd.Context(), paths, popts, &opts)
		},
	}

	opts.register(cmd.Flags(), true)
	cmd.Flags().StringVar(&opts.tsv, "report", "", "write a TSV report of accepted graphs")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live progress view")

	return cmd
}

func (c *CLI) runProcess(ctx context.Context, paths []string, popts pipeline.Options, opts *processOpts) error {
	if len(paths) == 0 {
		printWarning(c.Out, "No .mtx or .edges files found")
		return nil
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	sink, err := c.newSink(ctx, opts.tsv)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	var outcomes []pipeline.Outcome
	if opts.tui {
		popts.Logger = log.New(io.Discard)
		outcomes, err = runWithTUI(ctx, len(paths), func(ctx context.Context, onOutcome func(pipeline.Outcome)) ([]pipeline.Outcome, error) {
			return runner.Run(ctx, paths, popts, onOutcome)
		})
	} else {
		outcomes, err = runner.Run(ctx, paths, popts, nil)
	}
	if sink != nil {
		if werr := writeRecords(ctx, sink, outcomes); werr != nil && err == nil {
			err = werr
		}
		if cerr := sink.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}

	prog.done("Processed " + plural(len(outcomes), "file"))
	printOutcomeSummary(c.Out, outcomes, popts.OutputDir)
	return nil
}

func writeRecords(ctx context.Context, sink report.Sink, outcomes []pipeline.Outcome) error {
	for _, o := range outcomes {
		if o.Status != pipeline.StatusAccepted {
			continue
		}
		r := report.FromOutcome(o)
		if info, err := os.Stat(o.Path); err == nil {
			r.UnzippedSize = info.Size()
		}
		if err := sink.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// expandInputs resolves files and directories to the supported graph files
// below them. Directory contents are sorted; explicit files keep their
// position.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "input")
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && format.Supported(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeUnreadable, err, "walk %s", arg)
		}
		slices.Sort(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
