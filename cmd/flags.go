package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/potential-cli/internal/config"
)

// tableFlags are the per-invocation overrides shared by summarize and stats.
type tableFlags struct {
	driver   string
	path     string
	dbURL    string
	name     string
	gross    string
	average  string
	field    string
	alias    string
	length   int
	withText bool
}

func (f *tableFlags) register(cmd *cobra.Command, withText bool) {
	f.withText = withText
	fl := cmd.Flags()
	fl.StringVar(&f.path, "table", "", "path to the table file (csv, xlsx, shp, geojson, sqlite/gpkg)")
	fl.StringVar(&f.dbURL, "database-url", "", "postgres connection string")
	fl.StringVar(&f.driver, "driver", "", "table driver (inferred from --table or --database-url when empty)")
	fl.StringVar(&f.name, "name", "", "table name inside a database or sheet name inside a workbook")
	fl.StringVar(&f.gross, "gross", "", "field holding gross revenue potential")
	fl.StringVar(&f.average, "average", "", "field holding average (per-capita) revenue potential")
	if withText {
		fl.StringVar(&f.field, "summary", "", "text field to write the summary into")
		fl.StringVar(&f.alias, "alias", "", "display alias for a newly created summary field")
		fl.IntVar(&f.length, "length", 0, "length of a newly created summary field")
	}
}

// apply copies explicitly set flags over the loaded configuration.
func (f *tableFlags) apply(cmd *cobra.Command, c *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("table") {
		c.Table.Path = f.path
	}
	if fl.Changed("database-url") {
		c.Table.DatabaseURL = f.dbURL
	}
	if fl.Changed("driver") {
		c.Table.Driver = f.driver
	}
	if fl.Changed("name") {
		c.Table.Name = f.name
	}
	if fl.Changed("gross") {
		c.Summary.GrossField = f.gross
	}
	if fl.Changed("average") {
		c.Summary.AverageField = f.average
	}
	if !f.withText {
		return
	}
	if fl.Changed("summary") {
		c.Summary.Field = f.field
	}
	if fl.Changed("alias") {
		c.Summary.Alias = f.alias
	}
	if fl.Changed("length") {
		c.Summary.Length = f.length
	}
}
