package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/potential-cli/internal/summary"
)

// sampleRows have column deviations inside the qualifier range:
// gross σ ≈ 1.118, average σ ≈ 0.559.
var sampleRows = [][]float64{
	{1, 0.5},
	{2, 1.0},
	{3, 1.5},
	{4, 2.0},
}

// expectedSummaries computes the text every row of sampleRows should get.
func expectedSummaries(t *testing.T, rows [][]float64) []string {
	t.Helper()
	gross := make([]float64, len(rows))
	avg := make([]float64, len(rows))
	for i, r := range rows {
		gross[i], avg[i] = r[0], r[1]
	}
	gs, err := summary.Describe(gross)
	require.NoError(t, err)
	as, err := summary.Describe(avg)
	require.NoError(t, err)

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], err = summary.FullSummary(r[0], gs.StdDev, r[1], as.StdDev)
		require.NoError(t, err)
	}
	return out
}
