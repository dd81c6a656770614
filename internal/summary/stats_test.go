package summary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Population(t *testing.T) {
	s, err := Describe([]float64{100000, 50000})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 75000, s.Mean, 1e-9)
	assert.InDelta(t, 25000, s.StdDev, 1e-9)

	s, err = Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)
	assert.InDelta(t, 5, s.Mean, 1e-9)
	assert.InDelta(t, 2, s.StdDev, 1e-9)
}

func TestDescribe_ZeroVariance(t *testing.T) {
	s, err := Describe([]float64{3, 3, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0, s.StdDev, 1e-12)
}

func TestDescribe_InsufficientRows(t *testing.T) {
	for _, values := range [][]float64{nil, {42}} {
		s, err := Describe(values)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInsufficientRows))
		assert.Equal(t, len(values), s.Count)
	}
}
