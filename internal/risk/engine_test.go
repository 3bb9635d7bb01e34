package risk

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"praxis/internal/config"
	"praxis/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSource replays a fixed sequence of standard normal draws.
type seqSource struct {
	draws []float64
	i     int
}

func (s *seqSource) NormFloat64() float64 {
	v := s.draws[s.i%len(s.draws)]
	s.i++
	return v
}

func newTestEngine(t *testing.T, sim config.SimulationConfig) *Engine {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewEngine(logger, &config.Config{Simulation: sim})
}

func validRequest() model.SimulationRequest {
	return model.SimulationRequest{
		InitialInvestment: 1000,
		ExpectedReturn:    0.07,
		Volatility:        0.15,
		TimeHorizon:       10,
	}
}

func TestSimulate(t *testing.T) {
	t.Run("returns one finite outcome per trial", func(t *testing.T) {
		results, err := Simulate(validRequest(), 10000, NewSource(42))
		require.NoError(t, err)
		require.Len(t, results, 10000)
		for _, v := range results {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	})

	t.Run("compounds each draw multiplicatively", func(t *testing.T) {
		req := model.SimulationRequest{InitialInvestment: 1000, ExpectedReturn: 0.05, Volatility: 0.1, TimeHorizon: 2}
		src := &seqSource{draws: []float64{1, -1}}

		results, err := Simulate(req, 3, src)
		require.NoError(t, err)

		up := req.ExpectedReturn + req.Volatility*1
		down := req.ExpectedReturn + req.Volatility*-1
		want := req.InitialInvestment
		want *= 1 + up
		want *= 1 + down
		for _, v := range results {
			assert.Equal(t, want, v)
		}
		assert.Equal(t, 6, src.i)
	})

	t.Run("zero volatility is deterministic compounding", func(t *testing.T) {
		req := model.SimulationRequest{InitialInvestment: 2500, ExpectedReturn: 0.04, Volatility: 0, TimeHorizon: 15}

		want := req.InitialInvestment
		for i := 0; i < req.TimeHorizon; i++ {
			want *= 1 + req.ExpectedReturn
		}

		results, err := Simulate(req, 100, NewSource(1))
		require.NoError(t, err)
		for _, v := range results {
			assert.Equal(t, want, v)
		}
		assert.InEpsilon(t, 2500*math.Pow(1.04, 15), results[0], 1e-12)
	})

	t.Run("fixed seed is reproducible", func(t *testing.T) {
		a, err := Simulate(validRequest(), 1000, NewSource(42))
		require.NoError(t, err)
		b, err := Simulate(validRequest(), 1000, NewSource(42))
		require.NoError(t, err)
		assert.Equal(t, a, b)

		c, err := Simulate(validRequest(), 1000, NewSource(43))
		require.NoError(t, err)
		assert.NotEqual(t, a, c)
	})

	t.Run("negative values are not clamped", func(t *testing.T) {
		req := model.SimulationRequest{InitialInvestment: 100, ExpectedReturn: 0, Volatility: 1, TimeHorizon: 1}
		results, err := Simulate(req, 1, &seqSource{draws: []float64{-3}})
		require.NoError(t, err)
		assert.Equal(t, -200.0, results[0])
	})

	t.Run("rejects zero trials", func(t *testing.T) {
		_, err := Simulate(validRequest(), 0, NewSource(42))
		assert.ErrorIs(t, err, ErrNoTrials)
	})

	t.Run("rejects invalid inputs by field", func(t *testing.T) {
		tests := []struct {
			name  string
			req   model.SimulationRequest
			field string
			tag   string
		}{
			{"zero investment", model.SimulationRequest{InitialInvestment: 0, Volatility: 0.1, TimeHorizon: 1}, "initial_investment", "gt"},
			{"negative investment", model.SimulationRequest{InitialInvestment: -5, Volatility: 0.1, TimeHorizon: 1}, "initial_investment", "gt"},
			{"infinite investment", model.SimulationRequest{InitialInvestment: math.Inf(1), Volatility: 0.1, TimeHorizon: 1}, "initial_investment", "finite"},
			{"negative volatility", model.SimulationRequest{InitialInvestment: 1, Volatility: -0.1, TimeHorizon: 1}, "volatility", "gte"},
			{"nan return", model.SimulationRequest{InitialInvestment: 1, ExpectedReturn: math.NaN(), TimeHorizon: 1}, "expected_return", "finite"},
			{"zero horizon", model.SimulationRequest{InitialInvestment: 1, Volatility: 0.1, TimeHorizon: 0}, "time_horizon", "gte"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				src := &seqSource{draws: []float64{0}}
				_, err := Simulate(tt.req, 10, src)
				require.Error(t, err)

				verrs, ok := AsValidation(err)
				require.True(t, ok)
				require.Len(t, verrs, 1)
				assert.Equal(t, tt.field, verrs[0].Field)
				assert.Equal(t, tt.tag, verrs[0].Tag)
				assert.Zero(t, src.i, "no draws before validation")
			})
		}
	})
}

func TestEngine_Run(t *testing.T) {
	engine := newTestEngine(t, config.SimulationConfig{
		Trials:         10000,
		PreviewSize:    10,
		Seeded:         true,
		Seed:           42,
		MaxTimeHorizon: 100,
	})

	t.Run("reference scenario", func(t *testing.T) {
		report, err := engine.Run(validRequest())
		require.NoError(t, err)

		require.Len(t, report.SimulationResults, 10)
		m := report.RiskMetrics
		assert.InDelta(t, 1000*math.Pow(1.07, 10), m.Mean, 60)
		assert.LessOrEqual(t, m.P5, m.Median)
		assert.LessOrEqual(t, m.Median, m.P95)
		assert.Greater(t, m.StdDev, 0.0)

		results, err := Simulate(validRequest(), engine.Trials(), NewSource(42))
		require.NoError(t, err)
		for i, p := range report.SimulationResults {
			assert.Equal(t, results[i], p.FinalValue)
		}
	})

	t.Run("seeded engine repeats itself", func(t *testing.T) {
		a, err := engine.Run(validRequest())
		require.NoError(t, err)
		b, err := engine.Run(validRequest())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("horizon cap", func(t *testing.T) {
		req := validRequest()
		req.TimeHorizon = 101
		_, err := engine.Run(req)
		verrs, ok := AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "time_horizon", verrs[0].Field)
		assert.Equal(t, "lte", verrs[0].Tag)
	})

	t.Run("unseeded engine still produces full reports", func(t *testing.T) {
		unseeded := newTestEngine(t, config.SimulationConfig{Trials: 200, PreviewSize: 10})
		report, err := unseeded.Run(validRequest())
		require.NoError(t, err)
		assert.Len(t, report.SimulationResults, 10)
	})

	t.Run("preview never exceeds trial count", func(t *testing.T) {
		small := newTestEngine(t, config.SimulationConfig{Trials: 3, PreviewSize: 10, Seeded: true, Seed: 42})
		report, err := small.Run(validRequest())
		require.NoError(t, err)
		assert.Len(t, report.SimulationResults, 3)
	})
}
