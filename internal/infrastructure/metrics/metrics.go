// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion outcomes
const (
	OutcomeSuccess             = "success"
	OutcomeInvalid             = "invalid"
	OutcomeNotFound            = "not_found"
	OutcomeNoRate              = "no_rate"
	OutcomeProviderUnavailable = "provider_unavailable"
	OutcomeError               = "error"
)

// Provider failure reasons
const (
	ReasonUnreachable = "unreachable"
	ReasonMalformed   = "malformed"
)

// Metrics groups the service collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	purchasesCreated prometheus.Counter
	conversions      *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		purchasesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "purchase_created_total",
			Help: "Purchases stored.",
		}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchase_conversions_total",
			Help: "Converted purchase reads by outcome.",
		}, []string{"outcome"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_provider_failures_total",
			Help: "Exchange rate provider faults. Absent rates are not counted.",
		}, []string{"reason"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.purchasesCreated,
		m.conversions,
		m.providerFailures,
		m.requestDuration,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPurchaseCreated counts a stored purchase.
func (m *Metrics) RecordPurchaseCreated() {
	if m == nil {
		return
	}
	m.purchasesCreated.Inc()
}

// RecordConversion counts a converted read under its outcome label.
func (m *Metrics) RecordConversion(outcome string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(outcome).Inc()
}

// RecordProviderFailure counts a provider fault under its classified reason.
func (m *Metrics) RecordProviderFailure(err error) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(ClassifyProviderFailure(err)).Inc()
}

// ObserveRequest records request latency by method, route template and status.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ClassifyProviderFailure maps a provider error to a reason label.
func ClassifyProviderFailure(err error) string {
	if errors.Is(err, entity.ErrProviderResponseMalformed) {
		return ReasonMalformed
	}
	return ReasonUnreachable
}
