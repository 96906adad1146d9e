// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "identity"

// Outcome labels.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultThrottled = "throttled"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

// Metrics owns a dedicated registry. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	tokenIssues   *prometheus.CounterVec
	tokenConsumes *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	hashDuration  *prometheus.HistogramVec
	hashRejected  prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		tokenIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "single_use_token_issues_total",
			Help:      "Single-use token issue attempts by kind and result.",
		}, []string{"kind", "result"}),
		tokenConsumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "single_use_token_consumes_total",
			Help:      "Single-use token consume attempts by kind and result.",
		}, []string{"kind", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Outbound notifications by provider and result.",
		}, []string{"provider", "result"}),
		hashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "password_hash_duration_seconds",
			Help:      "Time spent hashing or verifying passwords.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		hashRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_hash_rejected_total",
			Help:      "Hash requests rejected because the worker pool stayed saturated.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.tokenIssues,
		m.tokenConsumes,
		m.deliveries,
		m.hashDuration,
		m.hashRejected,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterDBStats exports the connection pool statistics of db.
func (m *Metrics) RegisterDBStats(db *sql.DB) error {
	if m == nil {
		return nil
	}

	return m.registry.Register(collectors.NewDBStatsCollector(db, namespace))
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTokenIssue(kind, result string) {
	if m == nil {
		return
	}
	m.tokenIssues.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveTokenConsume(kind, result string) {
	if m == nil {
		return
	}
	m.tokenConsumes.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveDelivery(provider, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) ObserveHash(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.hashDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHashRejected() {
	if m == nil {
		return
	}
	m.hashRejected.Inc()
}
