package cli

import (
	"github.com/spf13/cobra"

	"github.com/tahmid-khan/cvc-approximation/pkg/observability"
	"github.com/tahmid-khan/cvc-approximation/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		opts    pipelineFlags
		addr    string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve canonicalization over HTTP",
		Long: `Serve starts an HTTP service:

  POST /v1/canonical   canonical text of the uploaded graph
  POST /v1/render      SVG or DOT drawing of it
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics (unless --metrics=false)

It stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			popts, err := c.pipelineOptions(cmd, &opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = c.cfg.Server.Addr
			}

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			var collector *observability.Collector
			if metrics {
				collector = observability.NewCollector(appName)
				observability.SetPipelineHooks(collector)
				observability.SetCacheHooks(collector)
				observability.SetHTTPHooks(collector)
				defer observability.Reset()
			}

			srv, err := server.New(server.Config{
				Runner:        runner,
				Options:       popts,
				Collector:     collector,
				Logger:        c.Logger,
				MaxBodySize:   c.cfg.Server.MaxBodySize,
				MaxParseOrder: c.cfg.Server.MaxParseOrder,
			})
			if err != nil {
				return err
			}
			c.Logger.Info("listening", "addr", addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	opts.register(cmd.Flags(), false)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "record and serve Prometheus metrics")

	return cmd
}
