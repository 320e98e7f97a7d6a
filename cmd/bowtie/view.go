package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/timagonch/bowtie-diagram/pkg/risk"
	"github.com/timagonch/bowtie-diagram/pkg/tui"
)

func viewCmd(opts *globalOptions) *cobra.Command {
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Browse a diagram's risk report in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The viewer owns the terminal; logs would corrupt the screen.
			engine, _, _, err := opts.engine(io.Discard)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), tui.New(fileLoader(engine, args[0]), tui.WithRefresh(watch)))
		},
	}

	cmd.Flags().DurationVar(&watch, "watch", 0, "reload the file at this interval (e.g. 2s)")
	return cmd
}

func fileLoader(engine *risk.Engine, path string) tui.Loader {
	return func() (tui.Snapshot, error) {
		f, err := readDiagram(engine, path)
		if err != nil {
			return tui.Snapshot{}, err
		}
		return tui.Snapshot{
			Title:       path,
			Graph:       f.Graph,
			Report:      f.Report,
			Diagnostics: f.Diagnostics,
		}, nil
	}
}
