package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/render"
)

func computeCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		write  bool
	)

	cmd := &cobra.Command{
		Use:   "compute FILE...",
		Short: "Compute residual risk for one or more diagrams",
		Long: `Compute decodes each diagram, runs risk propagation and prints the result.

With --write the derived base, current and residual risk of every node is
stored back into the file under data.meta.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
			}

			engine, _, logger, err := opts.engine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var each func(*diagramFile) error
			if write {
				each = func(f *diagramFile) error {
					if err := f.writeBack(); err != nil {
						return err
					}
					logger.Info("derived values written", logging.Path(f.Path))
					return nil
				}
			}

			files, err := readDiagrams(cmd.Context(), engine, args, each)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), format, files)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or yaml")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write derived risk values back into each file")
	return cmd
}

func printReports(w io.Writer, format string, files []*diagramFile) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(files) == 1 {
			return enc.Encode(files[0])
		}
		return enc.Encode(files)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if len(files) == 1 {
			return enc.Encode(files[0])
		}
		return enc.Encode(files)
	}

	for i, f := range files {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if len(files) > 1 {
			fmt.Fprintf(w, "== %s ==\n", f.Path)
		}
		fmt.Fprintln(w, render.Summary(f.Graph, f.Report))
		fmt.Fprintln(w, render.Table(f.Graph, f.Report))
	}
	return nil
}
