package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etl_aggregator"

// Metrics holds the aggregator's Prometheus meters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transactionsAggregated prometheus.Counter
	reportsGenerated       prometheus.Counter
	reportFailures         prometheus.Counter
	reportGenerationTime   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactionsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_aggregated_total",
			Help:      "Transactions inserted into the period buffer.",
		}),
		reportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Period summaries delivered to every sink.",
		}),
		reportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_failures_total",
			Help:      "Period summaries a sink refused.",
		}),
		reportGenerationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_generation_seconds",
			Help:      "Time to summarize and deliver one period.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transactionsAggregated,
		m.reportsGenerated,
		m.reportFailures,
		m.reportGenerationTime,
	)
	return m
}

// Registry exposes the underlying registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TransactionAggregated() {
	if m == nil {
		return
	}
	m.transactionsAggregated.Inc()
}

func (m *Metrics) ReportGenerated(took time.Duration) {
	if m == nil {
		return
	}
	m.reportsGenerated.Inc()
	m.reportGenerationTime.Observe(took.Seconds())
}

func (m *Metrics) ReportFailed(took time.Duration) {
	if m == nil {
		return
	}
	m.reportFailures.Inc()
	m.reportGenerationTime.Observe(took.Seconds())
}
