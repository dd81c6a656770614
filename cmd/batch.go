package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/potential-cli/internal/jobs"
	"github.com/sells-group/potential-cli/internal/table"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Summarize every table listed in a YAML job file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.MaxConcurrent = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		list, err := jobs.LoadFile(batchFile, cfg.Summary.TextField())
		if err != nil {
			return err
		}

		outcomes, err := jobs.Run(ctx, list, cfg.Batch.MaxConcurrent, table.Open)
		if err != nil {
			return err
		}

		printOutcomes(cmd.OutOrStdout(), outcomes)
		if n := jobs.Failed(outcomes); n > 0 {
			return eris.Errorf("%d of %d jobs failed", n, len(outcomes))
		}
		return nil
	},
}

func printOutcomes(w io.Writer, outcomes []jobs.Outcome) {
	for _, o := range outcomes {
		loc := o.Job.Table.Path
		if loc == "" {
			loc = "postgres"
		}
		if o.Job.Table.Name != "" {
			loc += "#" + o.Job.Table.Name
		}
		if o.Err != nil {
			fmt.Fprintf(w, "FAIL %s: %v\n", loc, o.Err)
			continue
		}
		fmt.Fprintf(w, "ok   %s: %d rows\n", loc, o.Result.RowsWritten)
	}
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "jobs.yaml", "path to the YAML job file")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max tables processed at once (overrides batch.max_concurrent)")
	rootCmd.AddCommand(batchCmd)
}
