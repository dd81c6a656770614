package table

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/potential-cli/internal/summary"
)

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want string
	}{
		{"explicit", Source{Driver: "XLSX", Path: "a.csv"}, DriverXLSX},
		{"geopackage alias", Source{Driver: "gpkg"}, DriverSQLite},
		{"shp alias", Source{Driver: "shp"}, DriverShapefile},
		{"postgres url", Source{DatabaseURL: "postgres://localhost/geo"}, DriverPostgres},
		{"postgresql url", Source{DatabaseURL: "postgresql://localhost/geo"}, DriverPostgres},
		{"csv", Source{Path: "stores.CSV"}, DriverCSV},
		{"xlsx", Source{Path: "stores.xlsx"}, DriverXLSX},
		{"shp", Source{Path: "stores.shp"}, DriverShapefile},
		{"dbf", Source{Path: "stores.dbf"}, DriverShapefile},
		{"geojson", Source{Path: "stores.geojson"}, DriverGeoJSON},
		{"gpkg", Source{Path: "stores.gpkg"}, DriverSQLite},
		{"sqlite", Source{Path: "stores.db"}, DriverSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectDriver(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectDriver_Unknown(t *testing.T) {
	_, err := DetectDriver(Source{Path: "stores.parquet"})
	assert.True(t, errors.Is(err, ErrUnknownDriver))

	_, err = DetectDriver(Source{Driver: "oracle"})
	assert.True(t, errors.Is(err, ErrUnknownDriver))
}

func TestSourceKey(t *testing.T) {
	a := Source{Path: "stores.csv"}
	b := Source{Driver: "csv", Path: "./stores.csv"}
	assert.Equal(t, a.Key(), b.Key())

	c := Source{Path: "sites.db", Name: "stores"}
	d := Source{Path: "sites.db", Name: "regions"}
	assert.NotEqual(t, c.Key(), d.Key())
}

func TestSourceKey_FileDrivers(t *testing.T) {
	assert.Equal(t, Source{Path: "sites.csv"}.Key(), Source{Path: "sites.csv", Name: "other"}.Key(), "csv ignores name")
	assert.Equal(t, Source{Path: "stores.geojson"}.Key(), Source{Path: "stores.geojson", Name: "x"}.Key())
	assert.Equal(t, Source{Path: "book.xlsx", Name: "Sheet1"}.Key(), Source{Path: "book.xlsx", Name: "Sheet2"}.Key(), "sheets share one workbook")
	assert.Equal(t, Source{Path: "parcels.shp"}.Key(), Source{Path: "parcels.dbf"}.Key(), "dbf maps to its shp")
	assert.Equal(t, Source{Path: "parcels.shp"}.Key(), Source{Driver: "shp", Path: "parcels.DBF"}.Key())
}

func TestOpen_RequiresTableName(t *testing.T) {
	_, err := Open(context.Background(), Source{Path: "sites.db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a table name")

	_, err = Open(context.Background(), Source{DatabaseURL: "postgres://localhost/geo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a table name")
}

func TestOpen_CSV(t *testing.T) {
	path := writeTempFile(t, "stores.csv", sampleCSV)

	h, err := Open(context.Background(), Source{Path: path})
	require.NoError(t, err)
	defer h.Close()

	_, ok := h.(*CSV)
	assert.True(t, ok)
}

func TestOpen_SQLite(t *testing.T) {
	s, path := newTestSQLite(t, sampleRows)
	require.NoError(t, s.Close())

	h, err := Open(context.Background(), Source{Path: path, Name: "stores"})
	require.NoError(t, err)
	defer h.Close()

	ok, err := h.HasField(context.Background(), "gross")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRowCursor(t *testing.T) {
	var written []string
	closed := 0
	cur := newRowCursor([][]float64{{1, 2}, {3, 4}},
		func(i int, text string) error {
			written = append(written, text)
			return nil
		},
		func() error { closed++; return nil },
	)

	assert.Error(t, cur.Set("early"), "Set before Next")
	assert.Nil(t, cur.Values())

	require.True(t, cur.Next())
	assert.Equal(t, []float64{1, 2}, cur.Values())
	require.NoError(t, cur.Set("a"))
	require.True(t, cur.Next())
	require.NoError(t, cur.Set("b"))
	assert.False(t, cur.Next())
	require.NoError(t, cur.Err())

	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close())
	assert.Equal(t, 1, closed, "close is idempotent")
	assert.Equal(t, []string{"a", "b"}, written)
	assert.Error(t, cur.Set("late"))
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber(" 1,234.5 ")
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, v, 1e-12)

	_, err = parseNumber("   ")
	assert.True(t, errors.Is(err, summary.ErrNullValue))

	_, err = parseNumber("n/a")
	assert.Error(t, err)
}
