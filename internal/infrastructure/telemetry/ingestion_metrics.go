package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch and parse buckets in seconds; feed downloads run from milliseconds to about a minute
var feedDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// IngestionMetrics records fetcher, parser and aggregator activity.
// It satisfies feed.Recorder and ecommerce.ParseRecorder.
type IngestionMetrics struct {
	fetchAttempts  *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fetchBytes     prometheus.Counter
	parseDuration  *prometheus.HistogramVec
	parsedProducts *prometheus.CounterVec
	parseErrors    *prometheus.CounterVec
	aggregations   *prometheus.CounterVec
	sourceFailures prometheus.Counter
	aggregateTime  prometheus.Histogram
}

// NewIngestionMetrics creates and registers the ingestion metric set
func NewIngestionMetrics(r *Registry) *IngestionMetrics {
	m := &IngestionMetrics{
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "feed",
			Name:      "fetch_attempts_total",
			Help:      "Feed download attempts by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "feed",
			Name:      "fetches_total",
			Help:      "Feed downloads after retries by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: r.namespace,
			Subsystem: "feed",
			Name:      "fetch_duration_seconds",
			Help:      "Feed download duration including retries.",
			Buckets:   feedDurationBuckets,
		}, []string{"result"}),
		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "feed",
			Name:      "fetched_bytes_total",
			Help:      "Bytes of feed documents downloaded.",
		}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: r.namespace,
			Subsystem: "parser",
			Name:      "duration_seconds",
			Help:      "Feed parse duration by platform.",
			Buckets:   feedDurationBuckets,
		}, []string{"platform"}),
		parsedProducts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "parser",
			Name:      "products_total",
			Help:      "Products extracted from feeds by platform.",
		}, []string{"platform"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "parser",
			Name:      "item_errors_total",
			Help:      "Feed items skipped because they could not be parsed.",
		}, []string{"platform"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "aggregator",
			Name:      "runs_total",
			Help:      "Catalog aggregations by result.",
		}, []string{"result"}),
		sourceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "aggregator",
			Name:      "source_failures_total",
			Help:      "Data sources that failed during aggregation.",
		}),
		aggregateTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: r.namespace,
			Subsystem: "aggregator",
			Name:      "duration_seconds",
			Help:      "Catalog aggregation duration.",
			Buckets:   feedDurationBuckets,
		}),
	}
	r.mustRegister(
		m.fetchAttempts, m.fetches, m.fetchDuration, m.fetchBytes,
		m.parseDuration, m.parsedProducts, m.parseErrors,
		m.aggregations, m.sourceFailures, m.aggregateTime,
	)
	return m
}

// RecordFetchAttempt counts one download attempt
func (m *IngestionMetrics) RecordFetchAttempt(outcome string) {
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

// RecordFetch records a finished download
func (m *IngestionMetrics) RecordFetch(success bool, d time.Duration, bytes int) {
	result := resultLabel(success)
	m.fetches.WithLabelValues(result).Inc()
	m.fetchDuration.WithLabelValues(result).Observe(d.Seconds())
	if bytes > 0 {
		m.fetchBytes.Add(float64(bytes))
	}
}

// RecordParse records a finished feed parse
func (m *IngestionMetrics) RecordParse(platform string, products, itemErrors int, d time.Duration) {
	m.parseDuration.WithLabelValues(platform).Observe(d.Seconds())
	m.parsedProducts.WithLabelValues(platform).Add(float64(products))
	m.parseErrors.WithLabelValues(platform).Add(float64(itemErrors))
}

// RecordAggregation records a finished aggregation
func (m *IngestionMetrics) RecordAggregation(success bool, failedSources int, d time.Duration) {
	m.aggregations.WithLabelValues(resultLabel(success)).Inc()
	m.sourceFailures.Add(float64(failedSources))
	m.aggregateTime.Observe(d.Seconds())
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
