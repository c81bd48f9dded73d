package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rarpack/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var flags packFlags

	cmd := &cobra.Command{
		Use:   "check [input folder...]",
		Short: "Verify the compressor and the folders a run needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides := flags.overrides(cmd.Flags())
			overrides.Sources = append(append([]string{}, flags.inputs...), args...)
			rc, err := cfg.RunConfig(overrides)
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, rc)
			rows := make([][]string, 0, len(results))
			failed := 0
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
					failed++
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.inputs, "input", "i", nil, "Input folder (repeatable)")
	f.StringVarP(&flags.dstPath, "dst-path", "o", "", "Destination folder for all archives")
	f.StringVarP(&flags.rarFolder, "rar-folder", "x", "", "Reserved subfolder created inside each input folder")
	f.StringVar(&flags.executable, "rar", "", "Path to the rar executable")
	f.BoolVar(&flags.logPerRun, "log-per-run", false, "Check the per-run outcome folder instead of the shared history")

	return cmd
}
