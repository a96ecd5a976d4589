// Package metrics collects and exposes Prometheus metrics for the site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeMisconfigured = "misconfigured"
	OutcomeUpstreamFail  = "upstream_error"
)

// Recorder is what handlers and clients report to.
type Recorder interface {
	RecordBackendCall(operation, outcome string, duration time.Duration)
	RecordPayment(outcome string)
	RecordPlanChange(outcome string)
	RecordStatusFallback()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	backendCalls    *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	payments        *prometheus.CounterVec
	planChanges     *prometheus.CounterVec
	statusFallbacks prometheus.Counter
}

// NewCollector registers the site's metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replyify_backend_calls_total",
			Help: "Calls to the managed backend and billing webhook by operation and outcome.",
		}, []string{"operation", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "replyify_backend_call_duration_seconds",
			Help:    "Latency of calls to the managed backend and billing webhook.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replyify_payment_requests_total",
			Help: "POST /api/payment requests by outcome.",
		}, []string{"outcome"}),
		planChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replyify_plan_changes_total",
			Help: "Signed-in plan change requests by outcome.",
		}, []string{"outcome"}),
		statusFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replyify_plan_status_fallbacks_total",
			Help: "Plan status lookups that fell back to the default plan.",
		}),
	}

	reg.MustRegister(
		c.backendCalls,
		c.backendLatency,
		c.payments,
		c.planChanges,
		c.statusFallbacks,
	)

	return c
}

func (c *Collector) RecordBackendCall(operation, outcome string, duration time.Duration) {
	c.backendCalls.WithLabelValues(operation, outcome).Inc()
	c.backendLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordPayment(outcome string) {
	c.payments.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPlanChange(outcome string) {
	c.planChanges.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordStatusFallback() {
	c.statusFallbacks.Inc()
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used where no registry is wired.
type Nop struct{}

func (Nop) RecordBackendCall(string, string, time.Duration) {}
func (Nop) RecordPayment(string)                            {}
func (Nop) RecordPlanChange(string)                         {}
func (Nop) RecordStatusFallback()                           {}
