package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/potential-cli/internal/summary"
	"github.com/sells-group/potential-cli/internal/table"
)

var summarizeFlags tableFlags

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Write a revenue potential summary into every row of a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summarizeFlags.apply(cmd, cfg)
		if err := cfg.Validate("summarize"); err != nil {
			return err
		}

		h, err := table.Open(ctx, cfg.Table)
		if err != nil {
			return eris.Wrap(err, "open table")
		}
		defer h.Close()

		res, err := summary.CalculateSummaryField(ctx, h, cfg.Summary.GrossField, cfg.Summary.AverageField, cfg.Summary.TextField())
		if err != nil {
			return eris.Wrap(err, "calculate summary field")
		}

		zap.L().Info("summary complete",
			zap.String("run_id", res.RunID),
			zap.Bool("field_created", res.FieldCreated),
			zap.Int("rows_written", res.RowsWritten),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d summaries to %s\n", res.RowsWritten, cfg.Summary.Field)
		return nil
	},
}

func init() {
	summarizeFlags.register(summarizeCmd, true)
	rootCmd.AddCommand(summarizeCmd)
}
