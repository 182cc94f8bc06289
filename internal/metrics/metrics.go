// Package metrics collects auth gateway metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/lborres/technopark/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements core.Metrics with Prometheus collectors.
type Collector struct {
	logins               *prometheus.CounterVec
	registrationFailures *prometheus.CounterVec
	externalCalls        *prometheus.HistogramVec
}

var _ core.Metrics = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technopark_login_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technopark_registration_failures_total",
			Help: "Registration pipeline failures by step.",
		}, []string{"step"}),
		externalCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "technopark_external_call_duration_seconds",
			Help:    "Latency of calls to external services.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(
		c.logins,
		c.registrationFailures,
		c.externalCalls,
	)

	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRegistrationFailure(step string) {
	c.registrationFailures.WithLabelValues(step).Inc()
}

func (c *Collector) ObserveExternalCall(operation, outcome string, d time.Duration) {
	c.externalCalls.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
