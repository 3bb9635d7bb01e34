package risk

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"praxis/internal/config"
	"praxis/internal/model"
)

// ErrNoTrials is returned when a simulation is asked to run zero trials.
var ErrNoTrials = errors.New("risk: trial count must be at least 1")

// NormalSource draws standard normal samples.
type NormalSource interface {
	NormFloat64() float64
}

// NewSource returns a PCG-backed random source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Engine runs Monte Carlo simulations and summarizes them.
type Engine struct {
	logger     *slog.Logger
	validator  *Validator
	trials     int
	preview    int
	seeded     bool
	seed       uint64
	maxHorizon int
}

// NewEngine creates a new instance of the Engine.
func NewEngine(logger *slog.Logger, cfg *config.Config) *Engine {
	sim := cfg.Simulation
	e := &Engine{
		logger:     logger,
		validator:  NewValidator(),
		trials:     sim.Trials,
		preview:    sim.PreviewSize,
		seeded:     sim.Seeded,
		seed:       sim.Seed,
		maxHorizon: sim.MaxTimeHorizon,
	}
	if e.trials < 1 {
		e.trials = 10000
	}
	if e.preview < 0 {
		e.preview = 0
	}
	return e
}

// Trials returns the configured trial count.
func (e *Engine) Trials() int { return e.trials }

// Validator returns the engine's request validator.
func (e *Engine) Validator() *Validator { return e.validator }

// NewSource returns a fresh random source for one run. A seeded engine
// returns identically seeded sources on every call.
func (e *Engine) NewSource() *rand.Rand {
	if e.seeded {
		return NewSource(e.seed)
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Validate checks req, including the configured horizon cap.
func (e *Engine) Validate(req model.SimulationRequest) error {
	if err := e.validator.Struct(req); err != nil {
		return err
	}
	if e.maxHorizon > 0 && req.TimeHorizon > e.maxHorizon {
		return ValidationErrors{{
			Field:   "time_horizon",
			Tag:     "lte",
			Value:   strconv.Itoa(req.TimeHorizon),
			Message: fmt.Sprintf("time_horizon must be less than or equal to %d", e.maxHorizon),
		}}
	}
	return nil
}

// Run validates req, simulates the configured number of trials and
// aggregates them into a report with a preview of the first outcomes.
func (e *Engine) Run(req model.SimulationRequest) (*model.RiskReport, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := Simulate(req, e.trials, e.NewSource())
	if err != nil {
		return nil, err
	}
	metrics, err := Aggregate(results)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	e.logger.Debug("Simulation completed",
		"trials", len(results),
		"timeHorizon", req.TimeHorizon,
		"mean", metrics.Mean,
		"elapsed", time.Since(start),
	)

	return &model.RiskReport{
		SimulationResults: Preview(results, e.preview),
		RiskMetrics:       metrics,
	}, nil
}

// Simulate compounds a normally distributed period return over
// req.TimeHorizon periods for each of trials independent trials.
func Simulate(req model.SimulationRequest, trials int, rng NormalSource) (model.SimulationResult, error) {
	if trials < 1 {
		return nil, ErrNoTrials
	}
	if err := defaultValidator.Struct(req); err != nil {
		return nil, err
	}

	results := make(model.SimulationResult, trials)
	for i := range results {
		value := req.InitialInvestment
		for p := 0; p < req.TimeHorizon; p++ {
			r := req.ExpectedReturn + req.Volatility*rng.NormFloat64()
			value *= 1 + r
		}
		results[i] = value
	}
	return results, nil
}

// Preview returns the first n outcomes in generation order.
func Preview(results model.SimulationResult, n int) []model.TrialPreview {
	if n > len(results) {
		n = len(results)
	}
	out := make([]model.TrialPreview, n)
	for i := 0; i < n; i++ {
		out[i] = model.TrialPreview{FinalValue: results[i]}
	}
	return out
}

var defaultValidator = NewValidator()
