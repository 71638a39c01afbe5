// Package metrics exposes Prometheus instrumentation for the webhook sink.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for this process.
type Metrics struct {
	reg *prometheus.Registry

	deliveries  *prometheus.CounterVec
	malformed   prometheus.Counter
	faults      prometheus.Counter
	reconcileDur prometheus.Summary
}

// New creates and registers the sink's collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{reg: reg}

	m.deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contact_webhook",
		Name:      "deliveries_total",
		Help:      "Webhook deliveries by reconciliation action",
	}, []string{"action"})
	m.malformed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "contact_webhook",
		Name:      "malformed_payloads_total",
		Help:      "Webhook bodies rejected as invalid JSON",
	})
	m.faults = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "contact_webhook",
		Name:      "reconcile_faults_total",
		Help:      "Deliveries aborted by a storage fault",
	})
	m.reconcileDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "contact_webhook",
		Name:      "reconcile_duration_seconds",
		Help:      "Time spent reconciling one delivery",
	})

	reg.MustRegister(m.deliveries, m.malformed, m.faults, m.reconcileDur)
	return m
}

// Delivery records one completed reconciliation and its duration.
func (m *Metrics) Delivery(action string, elapsed time.Duration) {
	m.deliveries.WithLabelValues(action).Inc()
	m.reconcileDur.Observe(elapsed.Seconds())
}

// Malformed records a rejected request body.
func (m *Metrics) Malformed() { m.malformed.Inc() }

// Fault records a delivery aborted by a storage error.
func (m *Metrics) Fault() { m.faults.Inc() }

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
