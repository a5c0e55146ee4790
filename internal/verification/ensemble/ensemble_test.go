package ensemble

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"faceverify/internal/verification/config"
	"faceverify/internal/verification/models"
)

func readings(scores ...float64) []models.MetricReading {
	metrics := models.AllMetrics()
	out := make([]models.MetricReading, len(scores))
	for i, s := range scores {
		out[i] = models.NewReading(metrics[i], s, s)
	}
	return out
}

type AggregatorSuite struct {
	suite.Suite
	cal config.Calibration
	agg *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.cal = config.DefaultCalibration()
	var err error
	s.agg, err = New(s.cal)
	s.Require().NoError(err)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *AggregatorSuite) TestNew() {
	s.Run("missing cutoff", func() {
		cal := config.DefaultCalibration()
		delete(cal.Cutoffs, models.MetricTriplet)
		_, err := New(cal)
		s.ErrorContains(err, "no cutoff configured for triplet")
	})

	s.Run("negative weight", func() {
		cal := config.DefaultCalibration()
		cal.Weights[models.MetricCosine] = -0.1
		_, err := New(cal)
		s.Error(err)
	})

	s.Run("later calibration changes do not leak in", func() {
		cal := config.DefaultCalibration()
		agg, err := New(cal)
		s.Require().NoError(err)
		cal.Weights[models.MetricArcFace] = 100

		out, err := agg.Aggregate(readings(1, 0, 0, 0, 0), 0.5)
		s.Require().NoError(err)
		s.InDelta(0.2, out.Ensemble, 1e-12)
	})
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *AggregatorSuite) TestAllStrong() {
	out, err := s.agg.Aggregate(readings(0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9), 0.75)
	s.Require().NoError(err)

	s.InDelta(0.9, out.Ensemble, 1e-12)
	s.Equal(10, out.Available)
	s.Equal(10, out.Agreement)
}

func (s *AggregatorSuite) TestSplitVerdict() {
	out, err := s.agg.Aggregate(readings(0.3, 0.3, 0.3, 0.3, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9), 0.75)
	s.Require().NoError(err)

	s.InDelta(0.66, out.Ensemble, 1e-12)
	s.Equal(4, out.Agreement, "the four low metrics agree with the no-match verdict")

	s.Run("agreement flips with the verdict sign", func() {
		s.Equal(6, s.agg.Agreement(out, 0.6))
	})
}

func (s *AggregatorSuite) TestUnavailableMetricsAreRenormalised() {
	rs := readings(0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.1, 0.1, 0.1)
	for i := 7; i < 10; i++ {
		rs[i] = models.UnavailableReading(rs[i].Metric, models.UnavailableTimeout)
	}

	out, err := s.agg.Aggregate(rs, 0.75)
	s.Require().NoError(err)

	s.Equal(7, out.Available)
	s.InDelta(0.9, out.Ensemble, 1e-12)
	s.Equal(7, out.Agreement)
	var sum float64
	for _, w := range out.Weights {
		sum += w
	}
	s.InDelta(1.0, sum, 1e-12)
	s.NotContains(out.Votes, models.MetricTexture)
}

func (s *AggregatorSuite) TestInsufficientMetrics() {
	s.Run("below minimum regardless of scores", func() {
		rs := readings(1, 1, 1, 1)
		out, err := s.agg.Aggregate(rs, 0.75)
		s.ErrorIs(err, ErrInsufficientMetrics)
		s.Equal(4, out.Available)
	})

	s.Run("available metrics with zero total weight", func() {
		cal := config.DefaultCalibration()
		for _, m := range models.AllMetrics()[:5] {
			cal.Weights[m] = 0
		}
		agg, err := New(cal)
		s.Require().NoError(err)

		_, err = agg.Aggregate(readings(1, 1, 1, 1, 1), 0.75)
		s.ErrorIs(err, ErrInsufficientMetrics)
	})
}

func (s *AggregatorSuite) TestZeroWeightMetricVotesButDoesNotScore() {
	cal := config.DefaultCalibration()
	cal.Weights[models.MetricArcFace] = 0
	agg, err := New(cal)
	s.Require().NoError(err)

	out, err := agg.Aggregate(readings(0.1, 0.8, 0.8, 0.8, 0.8), 0.75)
	s.Require().NoError(err)

	s.InDelta(0.8, out.Ensemble, 1e-12)
	s.Contains(out.Votes, models.MetricArcFace)
	s.False(out.Votes[models.MetricArcFace])
	s.Equal(4, out.Agreement)
}

func (s *AggregatorSuite) TestRejectsMalformedReadings() {
	s.Run("duplicate metric", func() {
		rs := readings(0.9, 0.9, 0.9, 0.9, 0.9)
		rs = append(rs, rs[0])
		_, err := s.agg.Aggregate(rs, 0.75)
		s.ErrorContains(err, "duplicate reading")
	})

	s.Run("unknown metric", func() {
		rs := append(readings(0.9, 0.9, 0.9, 0.9, 0.9), models.NewReading("iris", 1, 1))
		_, err := s.agg.Aggregate(rs, 0.75)
		s.ErrorContains(err, "unknown metric")
	})
}

// =============================================================================
// Properties
// =============================================================================

func TestAggregateProperties(t *testing.T) {
	cal := config.DefaultCalibration()
	rng := rand.New(rand.NewPCG(42, 7))
	for i, m := range models.AllMetrics() {
		cal.Weights[m] = 0.5 + float64(i)*0.1
	}
	agg, err := New(cal)
	require.NoError(t, err)

	for range 200 {
		scores := make([]float64, 10)
		for i := range scores {
			scores[i] = rng.Float64()
		}
		rs := readings(scores...)
		threshold := rng.Float64()

		base, err := agg.Aggregate(rs, threshold)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, base.Ensemble, 0.0)
		assert.LessOrEqual(t, base.Ensemble, 1.0)
		assert.LessOrEqual(t, base.Agreement, base.Available)

		shuffled := append([]models.MetricReading(nil), rs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		reordered, err := agg.Aggregate(shuffled, threshold)
		require.NoError(t, err)
		assert.Equal(t, base.Ensemble, reordered.Ensemble, "ensemble must not depend on input order")
		assert.Equal(t, base.Agreement, reordered.Agreement)

		k := rng.IntN(10)
		raised := append([]models.MetricReading(nil), rs...)
		bumped := min(1, scores[k]+rng.Float64()*0.5)
		raised[k] = models.NewReading(raised[k].Metric, bumped, bumped)
		higher, err := agg.Aggregate(raised, threshold)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, higher.Ensemble, base.Ensemble, "raising one score never lowers the ensemble")
	}
}
