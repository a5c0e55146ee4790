package models

import (
	"math"
	"time"
)

// MetricID identifies one similarity signal in the ensemble.
type MetricID string

const (
	MetricArcFace    MetricID = "arcface"
	MetricFaceNet    MetricID = "facenet"
	MetricSFace      MetricID = "sface"
	MetricCosine     MetricID = "cosine"
	MetricEuclidean  MetricID = "euclidean"
	MetricHistogram  MetricID = "histogram"
	MetricLandmark   MetricID = "landmark"
	MetricStructural MetricID = "structural"
	MetricTexture    MetricID = "texture"
	MetricTriplet    MetricID = "triplet"
)

var allMetrics = []MetricID{
	MetricArcFace,
	MetricFaceNet,
	MetricSFace,
	MetricCosine,
	MetricEuclidean,
	MetricHistogram,
	MetricLandmark,
	MetricStructural,
	MetricTexture,
	MetricTriplet,
}

// AllMetrics returns the ten ensemble metrics in canonical order.
func AllMetrics() []MetricID {
	out := make([]MetricID, len(allMetrics))
	copy(out, allMetrics)
	return out
}

func (m MetricID) IsValid() bool {
	for _, known := range allMetrics {
		if m == known {
			return true
		}
	}
	return false
}

func (m MetricID) String() string {
	return string(m)
}

// UnavailableReason explains why a metric produced no reading.
type UnavailableReason string

const (
	UnavailableTimeout       UnavailableReason = "timeout"
	UnavailableProviderError UnavailableReason = "provider_error"
	UnavailableInternalError UnavailableReason = "internal_provider_error"
	UnavailableCircuitOpen   UnavailableReason = "circuit_open"
	UnavailableNotLoaded     UnavailableReason = "not_loaded"
)

// MetricReading is one provider's verdict on a face pair. Raw is in the
// metric's native scale; Score is normalised to [0,1], higher meaning more
// likely the same person. Score and Raw are meaningless unless Available.
type MetricReading struct {
	Metric      MetricID
	Raw         float64
	Score       float64
	Available   bool
	Unavailable UnavailableReason
	Latency     time.Duration
}

// NewReading builds an available reading, clamping the score into [0,1].
func NewReading(metric MetricID, raw, score float64) MetricReading {
	return MetricReading{
		Metric:    metric,
		Raw:       raw,
		Score:     Clamp01(score),
		Available: true,
	}
}

// UnavailableReading builds a reading that carries no score.
func UnavailableReading(metric MetricID, reason UnavailableReason) MetricReading {
	return MetricReading{
		Metric:      metric,
		Unavailable: reason,
	}
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
