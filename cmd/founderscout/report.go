package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shpitdev/founder-scout/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var runFile string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the qualified-founders text report from a prior run output",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(runFile)
			if err != nil {
				return fmt.Errorf("read run file: %w", err)
			}
			var out report.RunOutput
			if err := json.Unmarshal(b, &out); err != nil {
				return fmt.Errorf("parse run file: %w", err)
			}

			qualified := report.FilterQualified(out.Results)
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.RenderText(qualified))
			return err
		},
	}

	cmd.Flags().StringVar(&runFile, "run-file", "", "Run output JSON (founder_results_batch_N.json)")
	_ = cmd.MarkFlagRequired("run-file")
	return cmd
}
