// Package metrics groups the Prometheus instruments for the notification
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcome label values.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Promotion mode label values.
const (
	ModeMetadata = "metadata"
	ModeFallback = "fallback"
)

// Metrics holds all pipeline instruments. Registered once at startup via
// New(); passed by pointer wherever needed.
type Metrics struct {
	CandidatesTracked prometheus.Counter
	Promotions        *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
}

// New registers all instruments with the given registerer.
// A custom registry keeps tests isolated from global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CandidatesTracked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifyrr_candidates_tracked_total",
			Help: "Total number of (item, subscriber) candidates inserted into the readiness tracker.",
		}),
		Promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifyrr_promotions_total",
			Help: "Total number of candidates promoted to the send queue, by mode.",
		}, []string{"mode"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifyrr_deliveries_total",
			Help: "Total number of webhook delivery attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		m.CandidatesTracked,
		m.Promotions,
		m.Deliveries,
	)

	return m
}

// RegisterPipelineGauges exposes the live pending-candidate count and send
// queue depth as gauges backed by the given callbacks.
func RegisterPipelineGauges(reg prometheus.Registerer, pending, queueDepth func() float64) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "notifyrr_pending_candidates",
			Help: "Current number of candidates awaiting a readiness decision.",
		}, pending),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "notifyrr_send_queue_depth",
			Help: "Current number of built messages awaiting delivery.",
		}, queueDepth),
	)
}
