package landmark

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
	"faceverify/internal/verification/providers/contract"
)

func withLandmarks(pts []models.Point) *models.FaceCrop {
	return models.NewFaceCrop(nil, contract.SyntheticFace(contract.Face{}).Box, pts, 1)
}

var canonical = []models.Point{
	{X: 56, Y: 64}, {X: 104, Y: 64}, {X: 80, Y: 88}, {X: 61, Y: 115}, {X: 99, Y: 115},
}

// transform applies a similarity transform: rotate by theta, scale, translate.
func transform(pts []models.Point, theta, scale, tx, ty float64) []models.Point {
	out := make([]models.Point, len(pts))
	sin, cos := math.Sincos(theta)
	for i, p := range pts {
		out[i] = models.Point{
			X: scale*(cos*p.X-sin*p.Y) + tx,
			Y: scale*(sin*p.X+cos*p.Y) + ty,
		}
	}
	return out
}

func TestComparator(t *testing.T) {
	ctx := context.Background()
	c, err := NewComparator(0.25)
	require.NoError(t, err)

	t.Run("identical geometry", func(t *testing.T) {
		m, err := c.Compare(ctx, withLandmarks(canonical), withLandmarks(canonical))
		require.NoError(t, err)
		assert.InDelta(t, 0.0, m.Raw, 1e-9)
		assert.InDelta(t, 1.0, m.Score, 1e-9)
	})

	t.Run("similarity transform is factored out", func(t *testing.T) {
		moved := transform(canonical, 0.3, 1.7, -12, 40)
		m, err := c.Compare(ctx, withLandmarks(canonical), withLandmarks(moved))
		require.NoError(t, err)
		assert.InDelta(t, 1.0, m.Score, 1e-9)
	})

	t.Run("changed proportions lower the score", func(t *testing.T) {
		wide := append([]models.Point(nil), canonical...)
		wide[models.LandmarkMouthLeft].X -= 12
		wide[models.LandmarkMouthRight].X += 12

		m, err := c.Compare(ctx, withLandmarks(canonical), withLandmarks(wide))
		require.NoError(t, err)
		assert.Greater(t, m.Raw, 0.0)
		assert.Less(t, m.Score, 1.0)
		assert.GreaterOrEqual(t, m.Score, 0.0)
	})

	t.Run("synthetic faces with shifted features", func(t *testing.T) {
		a := contract.SyntheticFace(contract.Face{Identity: 1})
		b := contract.SyntheticFace(contract.Face{Identity: 1, Shift: 10})
		m, err := c.Compare(ctx, a, b)
		require.NoError(t, err)
		assert.Less(t, m.Score, 1.0)
	})

	(&contract.ErrorContractTest{
		Name:       "missing landmarks",
		Comparator: c,
		Selfie:     withLandmarks(canonical),
		Document:   withLandmarks(canonical[:3]),
		Expected:   providers.ErrMissingLandmarks,
		Category:   providers.ErrorBadData,
	}).Run(t)

	(&contract.ErrorContractTest{
		Name:       "coincident eyes",
		Comparator: c,
		Selfie:     withLandmarks([]models.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {}, {}, {}}),
		Document:   withLandmarks(canonical),
		Expected:   providers.ErrMissingLandmarks,
	}).Run(t)
}

func TestNewComparatorRejectsNonPositiveTolerance(t *testing.T) {
	_, err := NewComparator(0)
	assert.Error(t, err)
}
