package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
	"github.com/timagonch/bowtie-diagram/pkg/visualization"
)

func convertCmd() *cobra.Command {
	var derive, arrange bool

	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Convert a diagram between JSON and YAML",
		Long: `Convert rewrites a diagram document in the format named by OUT's extension.
Presentation data and unknown editor keys are carried over untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			inFormat, err := codec.FormatFromPath(in)
			if err != nil {
				return err
			}
			outFormat, err := codec.FormatFromPath(out)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}

			var converted []byte
			if derive || arrange {
				g, err := codec.Decode(data, inFormat)
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				if arrange {
					if err := visualization.Arrange(g, nil); err != nil {
						return err
					}
				}
				var report *risk.Report
				if derive {
					report = risk.Compute(g)
				}
				converted, err = codec.Encode(g, report, outFormat)
				if err != nil {
					return err
				}
			} else {
				doc, err := codec.Unmarshal(data, inFormat)
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				converted, err = doc.Marshal(outFormat)
				if err != nil {
					return err
				}
			}

			if err := os.WriteFile(out, converted, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s → %s (%s)\n", in, out, outFormat)
			return nil
		},
	}

	cmd.Flags().BoolVar(&derive, "derive", false, "recompute and store derived risk values while converting")
	cmd.Flags().BoolVar(&arrange, "arrange", false, "lay nodes out in bow-tie columns")
	return cmd
}
