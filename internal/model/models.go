package model

import "time"

// SimulationRequest holds the portfolio parameters for one Monte Carlo run.
type SimulationRequest struct {
	InitialInvestment float64 `json:"initial_investment" validate:"finite,gt=0"`
	ExpectedReturn    float64 `json:"expected_return" validate:"finite"`
	Volatility        float64 `json:"volatility" validate:"finite,gte=0"`
	TimeHorizon       int     `json:"time_horizon" validate:"gte=1"`
}

// SimulationResult is the final value of every trial, in generation order.
type SimulationResult []float64

// RiskMetrics summarizes a SimulationResult.
type RiskMetrics struct {
	Mean   float64 `json:"Mean Final Value"`
	Median float64 `json:"Median Final Value"`
	P5     float64 `json:"5th Percentile (Worst Case)"`
	P95    float64 `json:"95th Percentile (Best Case)"`
	StdDev float64 `json:"Standard Deviation"`
}

// TrialPreview is a single trial outcome as returned to clients.
type TrialPreview struct {
	FinalValue float64 `json:"Final Value"`
}

// RiskReport is the response for one simulation request.
type RiskReport struct {
	SimulationResults []TrialPreview `json:"simulation_results"`
	RiskMetrics       RiskMetrics    `json:"risk_metrics"`
}

// ReturnSeries is an ordered sequence of level (price) observations.
type ReturnSeries []float64

// PriceTick represents a single price update from an exchange.
type PriceTick struct {
	Exchange string
	Pair     string
	Bid      float64
	Ask      float64
}

// Mid returns the midpoint of bid and ask.
func (t PriceTick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// PriceObservation is one stored point of a level series.
type PriceObservation struct {
	ID         int64     `db:"id"`
	Symbol     string    `db:"symbol"`
	Level      float64   `db:"level"`
	ObservedAt time.Time `db:"observed_at"`
}
