package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/report"
)

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var opts pipelineFlags

	cmd := &cobra.Command{
		Use:   "stats [file|dir]...",
		Short: "Summarize graph files without writing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions(cmd, &opts)
			if err != nil {
				return err
			}
			paths, err := expandInputs(args)
			if err != nil {
				return err
			}
			rows, err := c.statsRows(cmd.Context(), paths, popts)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Out, statsTable(rows))
			return nil
		},
	}

	opts.register(cmd.Flags(), false)
	return cmd
}

// statsRows runs every path through the pipeline without writing output.
// Rejected and unreadable files get a row with the reason in the last
// column.
func (c *CLI) statsRows(ctx context.Context, paths []string, opts pipeline.Options) ([][]string, error) {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	rows := make([][]string, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := pipeline.Stem(path)
		data, err := os.ReadFile(path)
		if err != nil {
			rows = append(rows, []string{name, "", "", "", "", "", err.Error()})
			continue
		}
		res, err := runner.Canonical(ctx, path, data, opts)
		switch {
		case err != nil:
			rows = append(rows, []string{name, "", "", "", "", "", err.Error()})
		case !res.Accepted():
			rows = append(rows, []string{name, strconv.Itoa(res.Order), strconv.Itoa(res.Size), "", "", "", res.Rejection.Error()})
		default:
			r := report.Record{
				Nodes: res.Order, Edges: res.Size,
				MaxDegree: res.Summary.MaxDegree, AvgDegree: res.Summary.AvgDegree, Density: res.Summary.Density,
			}
			row := r.Row()
			rows = append(rows, []string{name, row[2], row[3], row[4], row[5], row[6], "ok"})
		}
	}
	return rows, nil
}

func statsTable(rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleDim).
		Headers("name", "nodes", "edges", "max deg", "avg deg", "density", "status").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
