package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent
type Metrics struct {
	// Transaction metrics
	TransactionsStarted prometheus.Counter
	TransactionsEnded   *prometheus.CounterVec
	TransactionsIgnored prometheus.Counter
	TransactionsDropped prometheus.Counter
	TransactionDuration *prometheus.HistogramVec

	// Reporter metrics
	ReportsSent    prometheus.Counter
	ReportErrors   prometheus.Counter
	ReportsDropped prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector backed by its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		TransactionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_transactions_started_total",
				Help: "Total number of transactions started",
			},
		),
		TransactionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_transactions_ended_total",
				Help: "Total number of transactions ended",
			},
			[]string{"type", "outcome"},
		),
		TransactionsIgnored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_transactions_ignored_total",
				Help: "Requests skipped because their path matched an ignore pattern",
			},
		),
		TransactionsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_transactions_dropped_total",
				Help: "Ended transactions dropped because the collector buffer was full",
			},
		),
		TransactionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_transaction_duration_seconds",
				Help:    "Transaction duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"type", "outcome"},
		),

		ReportsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_reports_sent_total",
				Help: "Transaction payloads successfully delivered to the collector",
			},
		),
		ReportErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_report_errors_total",
				Help: "Transaction payloads that failed to deliver",
			},
		),
		ReportsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_reports_dropped_total",
				Help: "Transaction payloads dropped by the reporter rate limiter",
			},
		),
	}
}

// RecordTransactionEnd records one ended transaction
func (m *Metrics) RecordTransactionEnd(txType, outcome string, duration time.Duration) {
	m.TransactionsEnded.WithLabelValues(txType, outcome).Inc()
	m.TransactionDuration.WithLabelValues(txType, outcome).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the metrics in Prometheus format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
