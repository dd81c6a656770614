package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/potential-cli/internal/config"
	"github.com/sells-group/potential-cli/internal/jobs"
	"github.com/sells-group/potential-cli/internal/summary"
	"github.com/sells-group/potential-cli/internal/table"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"summarize", "stats", "batch"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "potential-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "GeoPackage")
	assert.Contains(t, rootCmd.Long, `"stats"`)
}

func TestSummarizeCommand_Flags(t *testing.T) {
	for _, name := range []string{"table", "database-url", "driver", "name", "gross", "average", "summary", "alias", "length"} {
		assert.NotNil(t, summarizeCmd.Flags().Lookup(name), "summarize should have --%s flag", name)
	}
}

func TestStatsCommand_Flags(t *testing.T) {
	assert.NotNil(t, statsCmd.Flags().Lookup("gross"))
	assert.NotNil(t, statsCmd.Flags().Lookup("average"))
	assert.Nil(t, statsCmd.Flags().Lookup("summary"), "stats never writes a field")
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("file")
	require.NotNil(t, flag)
	assert.Equal(t, "jobs.yaml", flag.DefValue)

	flag = batchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestTableFlags_ApplyOnlyChanged(t *testing.T) {
	var f tableFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd, true)
	require.NoError(t, cmd.ParseFlags([]string{"--table", "stores.csv", "--gross", "gross_pot", "--length", "500"}))

	c := &config.Config{}
	c.Table.Name = "kept"
	c.Summary.AverageField = "pc_pot"
	c.Summary.Field = "summary"
	f.apply(cmd, c)

	assert.Equal(t, "stores.csv", c.Table.Path)
	assert.Equal(t, "kept", c.Table.Name)
	assert.Equal(t, "gross_pot", c.Summary.GrossField)
	assert.Equal(t, "pc_pot", c.Summary.AverageField)
	assert.Equal(t, "summary", c.Summary.Field)
	assert.Equal(t, 500, c.Summary.Length)
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, "gross", summary.ColumnStats{Count: 4, Mean: 2.5, StdDev: 1.118034})
	assert.Equal(t, "gross: count=4 mean=2.5000 stddev=1.1180\n", buf.String())
}

func TestPrintOutcomes(t *testing.T) {
	var buf bytes.Buffer
	printOutcomes(&buf, []jobs.Outcome{
		{Job: jobs.Job{Table: table.Source{Path: "a.csv"}}, Result: &summary.Result{RowsWritten: 4}},
		{Job: jobs.Job{Table: table.Source{DatabaseURL: "postgres://u:p@h/db", Name: "stores"}}, Err: assert.AnError},
	})

	out := buf.String()
	assert.Contains(t, out, "ok   a.csv: 4 rows")
	assert.Contains(t, out, "FAIL postgres#stores")
	assert.NotContains(t, out, "u:p@h")
}
