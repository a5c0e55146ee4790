package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("nil receiver is a no-op", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.ObserveProvider("arcface", "ok", time.Millisecond)
			m.IncrementVerification("passed", "", "high")
			m.ObserveVerifyLatency(time.Second)
			m.ObserveEnsembleScore(0.9)
			m.ObserveQuality("selfie", 0.8)
			m.IncrementOutboxPublished("ok", 3)
		})
	})

	t.Run("counters are labelled", func(t *testing.T) {
		m := NewWithRegistry(prometheus.NewRegistry())

		m.ObserveProvider("arcface", "ok", time.Millisecond)
		m.ObserveProvider("arcface", "timeout", 2*time.Second)
		m.IncrementVerification("failed", "no_match", "low")
		m.IncrementOutboxPublished("ok", 2)
		m.IncrementOutboxPublished("ok", 0)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderReadings.WithLabelValues("arcface", "timeout")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("failed", "no_match", "low")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxPublished.WithLabelValues("ok")))
	})
}
