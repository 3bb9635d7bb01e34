// Package stats holds the numeric helpers shared by the risk aggregator and
// the volatility estimator.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// ErrEmpty is returned when a statistic is requested over no values.
var ErrEmpty = errors.New("stats: empty input")

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Mean returns the arithmetic mean.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return mstats.Mean(values)
}

// Median returns the 50th percentile.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return mstats.Median(values)
}

// StdDev returns the population standard deviation (divisor N).
func StdDev(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	return mstats.StandardDeviationPopulation(values)
}

// Percentile returns the p-th percentile of an ascending slice, interpolating
// linearly between the two closest ranks. p is in [0, 100].
func Percentile(sorted []float64, p float64) (float64, error) {
	n := len(sorted)
	if n == 0 {
		return 0, ErrEmpty
	}
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("stats: percentile %v out of range [0, 100]", p)
	}

	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1], nil
	}
	frac := pos - float64(lo)
	a, b := sorted[lo], sorted[lo+1]
	return a + (b-a)*frac, nil
}

// Finite returns the entries of values that are neither NaN nor infinite.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
