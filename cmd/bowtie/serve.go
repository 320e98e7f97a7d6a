package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timagonch/bowtie-diagram/pkg/api"
	"github.com/timagonch/bowtie-diagram/pkg/audit"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
	"github.com/timagonch/bowtie-diagram/pkg/store"
	"github.com/timagonch/bowtie-diagram/pkg/workspace"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes diagram editing, stateless computation, health and Prometheus
metrics over HTTP. Diagrams are kept in the configured store (memory, file
directory or S3).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := metrics.NewRegistry()
			engine := risk.NewEngine(
				risk.WithLogger(logger.With(logging.Component("engine"))),
				risk.WithMetrics(reg),
				risk.WithSharedCenterCredit(cfg.Engine.SharedCenterCredit),
			)

			st, err := store.Open(ctx, cfg.Store, logger.With(logging.Component("store")), reg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}

			ws := workspace.New(
				workspace.WithStore(st),
				workspace.WithEngine(engine),
				workspace.WithLogger(logger),
				workspace.WithMetrics(reg),
				workspace.WithHistory(audit.NewHistory(cfg.Server.HistorySize)),
			)

			srv := api.NewServer(ws, engine, cfg.Server,
				api.WithLogger(logger.With(logging.Component("api"))),
				api.WithMetrics(reg),
			)
			defer srv.Close()

			logger.Info("bowtie server starting",
				logging.String("addr", cfg.Server.Addr),
				logging.String("store", cfg.Store.Backend),
				logging.String("version", api.Version),
			)
			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("bowtie server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
