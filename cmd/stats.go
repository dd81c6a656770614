package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/potential-cli/internal/summary"
	"github.com/sells-group/potential-cli/internal/table"
)

var statsFlags tableFlags

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print count, mean and standard deviation of the value fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		statsFlags.apply(cmd, cfg)
		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		h, err := table.Open(ctx, cfg.Table)
		if err != nil {
			return eris.Wrap(err, "open table")
		}
		defer h.Close()

		gross, average, err := summary.DescribeColumns(ctx, h, cfg.Summary.GrossField, cfg.Summary.AverageField)
		if err != nil {
			return eris.Wrap(err, "describe columns")
		}

		printStats(cmd.OutOrStdout(), cfg.Summary.GrossField, gross)
		printStats(cmd.OutOrStdout(), cfg.Summary.AverageField, average)
		return nil
	},
}

func printStats(w io.Writer, field string, s summary.ColumnStats) {
	fmt.Fprintf(w, "%s: count=%d mean=%.4f stddev=%.4f\n", field, s.Count, s.Mean, s.StdDev)
}

func init() {
	statsFlags.register(statsCmd, false)
	rootCmd.AddCommand(statsCmd)
}
