package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Provider latency and reading outcomes by metric
	ProviderLatency  *prometheus.HistogramVec
	ProviderReadings *prometheus.CounterVec

	// Verdicts by outcome, reason and confidence
	Verifications *prometheus.CounterVec

	VerifyLatency prometheus.Histogram
	EnsembleScore prometheus.Histogram
	QualityScore  *prometheus.HistogramVec

	OutboxPublished *prometheus.CounterVec
}

// New registers the verification metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the verification metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	scoreBuckets := prometheus.LinearBuckets(0, 0.05, 21)

	return &Metrics{
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faceverify_provider_duration_seconds",
			Help:    "Duration of metric provider comparisons",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"metric"}),

		ProviderReadings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "faceverify_provider_readings_total",
			Help: "Metric provider readings by status",
		}, []string{"metric", "status"}), // status: "ok" or an unavailable reason

		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "faceverify_verifications_total",
			Help: "Recorded verification verdicts",
		}, []string{"outcome", "reason", "confidence"}),

		VerifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceverify_verify_duration_seconds",
			Help:    "Duration of a full verification including recording",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		EnsembleScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceverify_ensemble_score",
			Help:    "Distribution of ensemble scores",
			Buckets: scoreBuckets,
		}),

		QualityScore: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faceverify_quality_score",
			Help:    "Distribution of capture quality by image role",
			Buckets: scoreBuckets,
		}, []string{"image"}),

		OutboxPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "faceverify_outbox_published_total",
			Help: "Outbox rows relayed to the broker by status",
		}, []string{"status"}),
	}
}

// ObserveProvider records one provider reading.
func (m *Metrics) ObserveProvider(metric, status string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(metric).Observe(d.Seconds())
		m.ProviderReadings.WithLabelValues(metric, status).Inc()
	}
}

// IncrementVerification records a verdict.
func (m *Metrics) IncrementVerification(outcome, reason, confidence string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome, reason, confidence).Inc()
	}
}

func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveEnsembleScore(score float64) {
	if m != nil {
		m.EnsembleScore.Observe(score)
	}
}

func (m *Metrics) ObserveQuality(image string, quality float64) {
	if m != nil {
		m.QualityScore.WithLabelValues(image).Observe(quality)
	}
}

// IncrementOutboxPublished counts relayed rows; status is "ok" or "error".
func (m *Metrics) IncrementOutboxPublished(status string, n int) {
	if m != nil && n > 0 {
		m.OutboxPublished.WithLabelValues(status).Add(float64(n))
	}
}
