package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/render"
)

var errWarnings = errors.New("diagnostics reported warnings")

func validateCmd(opts *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Report topology findings for diagrams",
		Long: `Validate lists dangling edges, missing or ambiguous Top Events, orphan and
misplaced barriers, cycles and unlinked threats. Findings never stop risk
computation; with --strict any warning makes the command fail.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, _, err := opts.engine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			files, err := readDiagrams(cmd.Context(), engine, args, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warned := false
			for _, f := range files {
				fmt.Fprintf(out, "%s: %d nodes, %d edges\n", f.Path, f.Graph.NodeCount(), f.Graph.EdgeCount())
				fmt.Fprintln(out, render.Diagnostics(f.Diagnostics))
				if bowtie.HasWarnings(f.Diagnostics) {
					warned = true
				}
			}
			if strict && warned {
				return errWarnings
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any warning is reported")
	return cmd
}
