package risk

import (
	"errors"

	"praxis/internal/model"
	"praxis/internal/stats"
)

// ErrNoOutcomes is returned when aggregating an empty result.
var ErrNoOutcomes = errors.New("risk: no simulation outcomes to aggregate")

// Aggregate reduces trial outcomes to summary risk metrics. Every statistic
// is computed over a sorted copy, so the result does not depend on the
// order of results.
func Aggregate(results model.SimulationResult) (model.RiskMetrics, error) {
	if len(results) == 0 {
		return model.RiskMetrics{}, ErrNoOutcomes
	}
	sorted := stats.Sorted(results)

	var (
		m   model.RiskMetrics
		err error
	)
	if m.Mean, err = stats.Mean(sorted); err != nil {
		return model.RiskMetrics{}, err
	}
	if m.Median, err = stats.Median(sorted); err != nil {
		return model.RiskMetrics{}, err
	}
	if m.StdDev, err = stats.StdDev(sorted); err != nil {
		return model.RiskMetrics{}, err
	}
	if m.P5, err = stats.Percentile(sorted, 5); err != nil {
		return model.RiskMetrics{}, err
	}
	if m.P95, err = stats.Percentile(sorted, 95); err != nil {
		return model.RiskMetrics{}, err
	}
	return m, nil
}
