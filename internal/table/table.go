// Package table implements summary.Table over SQLite/GeoPackage, PostgreSQL,
// CSV, XLSX, ESRI shapefile and GeoJSON sources.
package table

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/potential-cli/internal/db"
	"github.com/sells-group/potential-cli/internal/summary"
)

// Supported drivers.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverCSV       = "csv"
	DriverXLSX      = "xlsx"
	DriverShapefile = "shapefile"
	DriverGeoJSON   = "geojson"
)

// ErrUnknownDriver is returned when a source's driver cannot be resolved.
var ErrUnknownDriver = eris.New("table: unknown driver")

// Source identifies a table.
type Source struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Name is the table (SQL) or sheet (XLSX). Ignored by file-per-table drivers.
	Name string `yaml:"name" mapstructure:"name"`
}

// Key identifies what a job writes for duplicate detection. File-backed
// drivers rewrite the whole file, so their key is the file alone; only SQL
// drivers distinguish tables by Name.
func (s Source) Key() string {
	driver, _ := DetectDriver(s)

	loc := s.Path
	if driver == DriverShapefile && strings.EqualFold(filepath.Ext(loc), ".dbf") {
		loc = strings.TrimSuffix(loc, filepath.Ext(loc)) + ".shp"
	}
	if loc == "" {
		loc = s.DatabaseURL
	} else if abs, err := filepath.Abs(loc); err == nil {
		loc = abs
	}

	switch driver {
	case DriverSQLite, DriverPostgres:
		return driver + "|" + loc + "|" + s.Name
	}
	return driver + "|" + loc
}

// Handle is an open table. Close releases connections or file handles.
type Handle interface {
	summary.Table
	Close() error
}

// DetectDriver returns the explicit driver, or infers one from the database
// URL scheme or the file extension.
func DetectDriver(src Source) (string, error) {
	if src.Driver != "" {
		d := strings.ToLower(src.Driver)
		switch d {
		case DriverSQLite, DriverPostgres, DriverCSV, DriverXLSX, DriverShapefile, DriverGeoJSON:
			return d, nil
		case "gpkg", "geopackage":
			return DriverSQLite, nil
		case "shp":
			return DriverShapefile, nil
		}
		return "", eris.Wrapf(ErrUnknownDriver, "table: driver %q", src.Driver)
	}

	if strings.HasPrefix(src.DatabaseURL, "postgres://") || strings.HasPrefix(src.DatabaseURL, "postgresql://") {
		return DriverPostgres, nil
	}

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".csv", ".txt":
		return DriverCSV, nil
	case ".xlsx":
		return DriverXLSX, nil
	case ".shp", ".dbf":
		return DriverShapefile, nil
	case ".geojson", ".json":
		return DriverGeoJSON, nil
	case ".db", ".sqlite", ".sqlite3", ".gpkg":
		return DriverSQLite, nil
	}
	return "", eris.Wrapf(ErrUnknownDriver, "table: cannot infer driver for %q", src.Path)
}

// Open resolves the driver and opens the table.
func Open(ctx context.Context, src Source) (Handle, error) {
	driver, err := DetectDriver(src)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverSQLite:
		if src.Name == "" {
			return nil, eris.New("table: sqlite source requires a table name")
		}
		return NewSQLite(src.Path, src.Name)
	case DriverPostgres:
		if src.Name == "" {
			return nil, eris.New("table: postgres source requires a table name")
		}
		pool, err := db.Connect(ctx, src.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool, src.Name, pool.Close), nil
	case DriverCSV:
		return NewCSV(src.Path, CSVOptions{}), nil
	case DriverXLSX:
		return NewXLSX(src.Path, src.Name), nil
	case DriverShapefile:
		return NewShapefile(src.Path), nil
	default:
		return NewGeoJSON(src.Path), nil
	}
}
