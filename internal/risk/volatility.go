package risk

import (
	"fmt"
	"math"
	"strconv"

	"praxis/internal/model"
	"praxis/internal/stats"
)

// SeriesField is the external name of the level series column.
const SeriesField = "return"

// PeriodChanges converts a level series to period-over-period fractional
// changes. The result has len(series)-1 entries and may contain NaN or Inf
// where a previous level is zero.
func PeriodChanges(series model.ReturnSeries) []float64 {
	if len(series) < 2 {
		return nil
	}
	changes := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		changes[i-1] = (series[i] - series[i-1]) / series[i-1]
	}
	return changes
}

// EstimateVolatility returns the population standard deviation of the
// finite period-over-period changes of series.
func EstimateVolatility(series model.ReturnSeries) (float64, error) {
	if len(series) < 2 {
		return 0, ValidationError{
			Field:   SeriesField,
			Tag:     "min",
			Value:   strconv.Itoa(len(series)),
			Message: fmt.Sprintf("%s must contain at least 2 observations, got %d", SeriesField, len(series)),
		}
	}

	changes := stats.Finite(PeriodChanges(series))
	if len(changes) == 0 {
		return 0, ValidationError{
			Field:   SeriesField,
			Tag:     "finite",
			Value:   strconv.Itoa(len(series)),
			Message: fmt.Sprintf("%s yields no finite period-over-period changes", SeriesField),
		}
	}

	vol, err := stats.StdDev(changes)
	if err != nil {
		return 0, fmt.Errorf("volatility: %w", err)
	}
	if math.IsInf(vol, 0) || math.IsNaN(vol) {
		return 0, ValidationError{
			Field:   SeriesField,
			Tag:     "finite",
			Value:   strconv.Itoa(len(series)),
			Message: fmt.Sprintf("%s changes are too large for a finite volatility", SeriesField),
		}
	}
	return vol, nil
}
