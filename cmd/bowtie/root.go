package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/timagonch/bowtie-diagram/pkg/api"
	"github.com/timagonch/bowtie-diagram/pkg/config"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

// newRootCmd creates the root command with every subcommand attached.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "bowtie",
		Short: "Bow-tie risk diagram toolkit",
		Long: `bowtie computes residual risk across bow-tie diagrams.

Threats flow through preventive barriers into the Top Event, and the Top
Event flows through mitigative barriers into its consequences. The CLI reads
the same JSON or YAML documents the diagram editor saves.`,
		Version:      api.Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML); BOWTIE_* env vars override it")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(
		computeCmd(opts),
		validateCmd(opts),
		convertCmd(),
		serveCmd(opts),
		viewCmd(opts),
	)
	return cmd
}

// load resolves configuration and builds the logger that goes with it. Logs
// always go to stderr so stdout stays machine-readable.
func (o *globalOptions) load(stderr io.Writer) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, logging.New(stderr, cfg.Log.Level), nil
}

// engine builds the risk engine configured by cfg.
func (o *globalOptions) engine(stderr io.Writer) (*risk.Engine, *config.Config, logging.Logger, error) {
	cfg, logger, err := o.load(stderr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	engine := risk.NewEngine(
		risk.WithLogger(logger),
		risk.WithSharedCenterCredit(cfg.Engine.SharedCenterCredit),
	)
	return engine, cfg, logger, nil
}
