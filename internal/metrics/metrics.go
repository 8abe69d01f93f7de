// Package metrics holds the client's Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "rpsboard"

// Anomaly kinds counted by AnomaliesTotal.
const (
	AnomalyDuplicateAdd  = "duplicate_add"
	AnomalyRemoveUnknown = "remove_unknown"
	AnomalyUpdateUnknown = "update_unknown"
	AnomalyBadFrame      = "bad_frame"
)

// Metrics groups the collectors updated by the session.
type Metrics struct {
	EventsTotal    *prometheus.CounterVec
	AnomaliesTotal *prometheus.CounterVec
	ChoicesTotal   *prometheus.CounterVec
	Participants   prometheus.Gauge
	Summaries      prometheus.Counter
}

// New creates the collectors and registers them with reg when it is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Server events applied, by kind.",
		}, []string{"kind"}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Ignored protocol anomalies, by kind.",
		}, []string{"kind"}),
		ChoicesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choices_total",
			Help:      "Round choice submissions, by result.",
		}, []string{"result"}),
		Participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants",
			Help:      "Participants currently in the roster.",
		}),
		Summaries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Final scoreboards emitted.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.EventsTotal, m.AnomaliesTotal, m.ChoicesTotal, m.Participants, m.Summaries)
	}
	return m
}
