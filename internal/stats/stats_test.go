package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"min", 0, 1},
		{"max", 100, 5},
		{"median", 50, 3},
		{"interpolated", 5, 1.2},
		{"upper interpolated", 95, 4.8},
		{"quarter", 25, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentile(sorted, tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	t.Run("single value", func(t *testing.T) {
		got, err := Percentile([]float64{7}, 95)
		require.NoError(t, err)
		assert.Equal(t, 7.0, got)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Percentile(nil, 50)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Percentile(sorted, 101)
		assert.Error(t, err)
		_, err = Percentile(sorted, math.NaN())
		assert.Error(t, err)
	})
}

func TestMeanMedianStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	mean, err := Mean(values)
	require.NoError(t, err)
	assert.Equal(t, 5.0, mean)

	median, err := Median(values)
	require.NoError(t, err)
	assert.Equal(t, 4.5, median)

	// population form: sqrt(32/8)
	sd, err := StdDev(values)
	require.NoError(t, err)
	assert.Equal(t, 2.0, sd)

	_, err = Mean(nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Median(nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = StdDev(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSortedDoesNotMutate(t *testing.T) {
	in := []float64{3, 1, 2}
	out := Sorted(in)
	assert.Equal(t, []float64{1, 2, 3}, out)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestFinite(t *testing.T) {
	got := Finite([]float64{1, math.NaN(), math.Inf(1), -2, math.Inf(-1)})
	assert.Equal(t, []float64{1, -2}, got)
}
