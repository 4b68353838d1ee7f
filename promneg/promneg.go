// Package promneg exports negotiation outcomes as Prometheus metrics.
package promneg

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/negotiate"
)

const subsystem = "negotiate"

// Metrics is a negotiate.Observer that counts negotiations and times them.
type Metrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "negotiations_total",
			Help:      "Total number of negotiated responses by outcome and mimetype",
		}, []string{"outcome", "mimetype"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Time spent deciding and serializing a response",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.total, m.duration)
	}
	return m
}

// Observe implements negotiate.Observer.
func (m *Metrics) Observe(_ context.Context, ev negotiate.Event) {
	outcome := ev.Outcome.String()
	m.total.WithLabelValues(outcome, ev.Mimetype).Inc()
	m.duration.WithLabelValues(outcome).Observe(ev.Duration.Seconds())
}
