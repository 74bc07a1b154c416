package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

type canonOpts struct {
	pipelineFlags
	format string
}

// canonCommand creates the canon command.
func (c *CLI) canonCommand() *cobra.Command {
	var opts canonOpts

	cmd := &cobra.Command{
		Use:   "canon <file>",
		Short: "Print the canonical form of a graph file",
		Long: `Canon prints the canonical edge list of one graph to stdout.

A graph the validator rejects is an error; the reason is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions(cmd, &opts.pipelineFlags)
			if err != nil {
				return err
			}
			res, err := c.canonical(cmd.Context(), args[0], opts.format, popts)
			if err != nil {
				return err
			}
			_, err = c.Out.Write(res.Text)
			return err
		},
	}

	opts.register(cmd.Flags(), false)
	cmd.Flags().StringVar(&opts.format, "format", "", "input format: mtx, edges (default: from extension)")

	return cmd
}

// canonical reads path and runs it through the pipeline. formatName, when
// set, overrides detection by extension. Rejections become errors.
func (c *CLI) canonical(ctx context.Context, path, formatName string, opts pipeline.Options) (*pipeline.Result, error) {
	name, err := inputName(path, formatName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "input")
		}
		return nil, errs.Wrap(errs.ErrCodeUnreadable, err, "read %s", path)
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	res, err := runner.Canonical(ctx, name, data, opts)
	if err != nil {
		return nil, err
	}
	if !res.Accepted() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "%s rejected: %s", pipeline.Stem(path), res.Rejection)
	}
	return res, nil
}

func inputName(path, formatName string) (string, error) {
	if formatName == "" {
		return path, nil
	}
	f, err := format.ParseFormat(formatName)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + f.Extension(), nil
}
