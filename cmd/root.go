package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/potential-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "potential-cli",
	Short: "Revenue potential summary annotations",
	Long: `potential-cli ranks each row of a table by its gross and per-capita revenue
potential and writes a sentence describing both into a text field.

Tables can be CSV, XLSX, GeoJSON, shapefile, SQLite/GeoPackage or PostGIS.
Use "stats" to preview the figures without writing anything.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
