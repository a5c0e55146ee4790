package models

import (
	"context"
	"encoding/json"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.2))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.42, Clamp01(0.42))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestMetricIDs(t *testing.T) {
	all := AllMetrics()
	assert.Len(t, all, 10)
	for _, m := range all {
		assert.True(t, m.IsValid(), m)
	}
	assert.False(t, MetricID("iris").IsValid())

	all[0] = "mutated"
	assert.Equal(t, MetricArcFace, AllMetrics()[0], "callers get a copy")
}

func TestApplyReading(t *testing.T) {
	t.Run("distance metrics keep raw and score", func(t *testing.T) {
		r := NewResult(time.Now(), 0.75, "", "")
		r.ApplyReading(NewReading(MetricCosine, 0.3, 0.85))
		r.ApplyReading(NewReading(MetricEuclidean, 0.9, 0.55))

		require.NotNil(t, r.CosineDistance)
		assert.Equal(t, 0.3, *r.CosineDistance)
		assert.Equal(t, 0.85, *r.CosineScore)
		assert.Equal(t, 0.9, *r.EuclideanDistance)
		assert.Equal(t, 0.55, *r.EuclideanScore)
	})

	t.Run("unavailable reading leaves field nil", func(t *testing.T) {
		r := NewResult(time.Now(), 0.75, "", "")
		r.ApplyReading(UnavailableReading(MetricTexture, UnavailableTimeout))
		assert.Nil(t, r.TextureScore)
		assert.False(t, r.HasMetricScores())
	})

	t.Run("measured zero is kept", func(t *testing.T) {
		r := NewResult(time.Now(), 0.75, "", "")
		r.ApplyReading(NewReading(MetricHistogram, 0, 0))
		require.NotNil(t, r.HistogramScore)
		assert.Equal(t, 0.0, *r.HistogramScore)
		assert.True(t, r.HasMetricScores())
	})
}

func TestCloneIsDeep(t *testing.T) {
	prev := uuid.New()
	r := NewResult(time.Now(), 0.75, "pixel-8", "203.0.113.9")
	r.Supersedes = &prev
	r.ApplyReading(NewReading(MetricArcFace, 0.8, 0.9))
	r.EnsembleScore = Float(0.9)

	c := r.Clone()
	*c.ArcFaceScore = 0.1
	*c.EnsembleScore = 0.1
	*c.DeviceInfo = "changed"
	*c.Supersedes = uuid.Nil

	assert.Equal(t, 0.9, *r.ArcFaceScore)
	assert.Equal(t, 0.9, *r.EnsembleScore)
	assert.Equal(t, "pixel-8", *r.DeviceInfo)
	assert.Equal(t, prev, *r.Supersedes)
}

func TestViewSerialisesUnavailableAsNull(t *testing.T) {
	r := NewResult(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 0.75, "", "")
	r.ID = uuid.New()
	r.ApplyReading(NewReading(MetricArcFace, 0.5, 0.0))
	r.Reason = ReasonNoMatch

	raw, err := json.Marshal(r.View())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	scores := decoded["scores"].(map[string]any)

	assert.Equal(t, 0.0, scores["arcface"], "measured zero stays zero")
	assert.Contains(t, scores, "texture")
	assert.Nil(t, scores["texture"], "unmeasured metric is null")
	assert.Nil(t, decoded["ensemble_score"])
	assert.Nil(t, decoded["device_info"])
	assert.Equal(t, "no_match", decoded["reason"])
	assert.Equal(t, "low", decoded["confidence"])
}

func TestMemoize(t *testing.T) {
	t.Run("concurrent callers share one computation", func(t *testing.T) {
		crop := NewFaceCrop(nil, image.Rectangle{}, nil, 1)
		var calls atomic.Int32

		var wg sync.WaitGroup
		results := make([]int, 8)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := Memoize(context.Background(), crop, "embedding/arcface", func() (int, error) {
					calls.Add(1)
					time.Sleep(10 * time.Millisecond)
					return 42, nil
				})
				assert.NoError(t, err)
				results[i] = v
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			assert.Equal(t, 42, v)
		}
	})

	t.Run("waiter honours its own context", func(t *testing.T) {
		crop := NewFaceCrop(nil, image.Rectangle{}, nil, 1)
		release := make(chan struct{})
		started := make(chan struct{})
		go func() {
			_, _ = Memoize(context.Background(), crop, "slow", func() (int, error) {
				close(started)
				<-release
				return 1, nil
			})
		}()
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := Memoize(ctx, crop, "slow", func() (int, error) { return 2, nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
	})

	t.Run("mismatched type is an error", func(t *testing.T) {
		crop := NewFaceCrop(nil, image.Rectangle{}, nil, 1)
		_, err := Memoize(context.Background(), crop, "k", func() (int, error) { return 1, nil })
		require.NoError(t, err)
		_, err = Memoize(context.Background(), crop, "k", func() (string, error) { return "", nil })
		assert.Error(t, err)
	})
}

func TestRiskContextElevated(t *testing.T) {
	assert.False(t, RiskContext{}.Elevated())
	assert.True(t, RiskContext{IPFailures: 1}.Elevated())
	assert.True(t, RiskContext{Degraded: true}.Elevated())
}
