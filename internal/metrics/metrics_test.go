package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EventsTotal.WithLabelValues("room").Inc()
	m.AnomaliesTotal.WithLabelValues(AnomalyDuplicateAdd).Add(2)
	m.Participants.Set(3)
	m.Summaries.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("room")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues(AnomalyDuplicateAdd)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Participants))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	m.ChoicesTotal.WithLabelValues("sent").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChoicesTotal.WithLabelValues("sent")))
}
