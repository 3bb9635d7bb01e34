package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Simulations.WithLabelValues(OutcomeOK).Inc()
	m.Simulations.WithLabelValues(OutcomeInvalid).Add(2)
	m.FeedTicks.WithLabelValues("kraken").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Simulations.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Simulations.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedTicks.WithLabelValues("kraken")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Panics(t, func() { New(reg) }, "collectors register once per registry")
}
