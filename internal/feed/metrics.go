package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricGenerationsTotal       = "feed_generations_total"
	MetricGenerationDuration     = "feed_generation_duration_seconds"
	MetricWindowDays             = "feed_window_days"
	MetricResultsCount           = "feed_results_count"
	MetricTunedAudienceAnomalies = "feed_tuned_audience_anomalies_total"
)

// Outcome labels for MetricGenerationsTotal.
const (
	OutcomeStrict   = "strict"
	OutcomeRelaxed  = "relaxed"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
)

// Anomaly reasons for MetricTunedAudienceAnomalies.
const (
	AnomalyMissingAudience = "missing_audience"
	AnomalyViewerExcluded  = "viewer_excluded"
)

// Metrics contains Prometheus metrics for feed generation.
// All operations are thread-safe. A nil *Metrics is valid and records nothing.
type Metrics struct {
	generations *prometheus.CounterVec
	duration    prometheus.Histogram
	windowDays  prometheus.Histogram
	results     prometheus.Histogram
	anomalies   *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGenerationsTotal,
				Help: "Total number of For You feed generations by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricGenerationDuration,
				Help:    "Histogram of For You feed generation duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
			},
		),
		windowDays: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricWindowDays,
				Help:    "Time window in days that produced the feed",
				Buckets: []float64{1, 3, 7, 10, 14, 21, 28, 30},
			},
		),
		results: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricResultsCount,
				Help:    "Number of chirps returned per feed generation",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
			},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTunedAudienceAnomalies,
				Help: "Tuned chirps that were unreachable or excluded the viewer, by reason",
			},
			[]string{"reason"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.generations,
		m.duration,
		m.windowDays,
		m.results,
		m.anomalies,
	}
}

// ObserveGeneration records one completed generation.
func (m *Metrics) ObserveGeneration(res Result, seconds float64) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(res.Outcome()).Inc()
	m.duration.Observe(seconds)
	m.results.Observe(float64(len(res.Items)))
	if res.Window > 0 {
		m.windowDays.Observe(float64(res.Window))
	}
}

// IncTunedAudienceAnomaly increments the anomaly counter for reason.
func (m *Metrics) IncTunedAudienceAnomaly(reason string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(reason).Inc()
}
