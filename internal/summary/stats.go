package summary

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrInsufficientRows is returned when a column has too few rows for a
// standard deviation.
var ErrInsufficientRows = eris.New("summary: at least two rows are required")

// ColumnStats describes the spread of one numeric column.
type ColumnStats struct {
	Count  int
	Mean   float64
	StdDev float64 // population σ
}

// Describe computes the mean and population standard deviation of values
// in a single pass (Welford). Fewer than two values is an error.
func Describe(values []float64) (ColumnStats, error) {
	if len(values) < 2 {
		return ColumnStats{Count: len(values)}, eris.Wrapf(ErrInsufficientRows, "summary: got %d", len(values))
	}

	var mean, m2 float64
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}

	return ColumnStats{
		Count:  len(values),
		Mean:   mean,
		StdDev: math.Sqrt(m2 / float64(len(values))),
	}, nil
}

// column extracts the i-th value of every row.
func column(rows [][]float64, i int) []float64 {
	out := make([]float64, len(rows))
	for r, row := range rows {
		out[r] = row[i]
	}
	return out
}
