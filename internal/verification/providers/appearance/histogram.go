package appearance

import (
	"context"
	"fmt"
	"math"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

const defaultHistogramBins = 8

// HistogramComparator compares joint RGB colour distributions by their
// Bhattacharyya coefficient.
type HistogramComparator struct {
	bins int
}

func NewHistogramComparator() *HistogramComparator {
	return &HistogramComparator{bins: defaultHistogramBins}
}

func (c *HistogramComparator) Metric() models.MetricID { return models.MetricHistogram }

func (c *HistogramComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, err := c.histogram(ctx, selfie)
	if err != nil {
		return providers.Measurement{}, err
	}
	b, err := c.histogram(ctx, document)
	if err != nil {
		return providers.Measurement{}, err
	}
	bc := bhattacharyya(a, b)
	return providers.Measurement{Raw: bc, Score: bc}, nil
}

func (c *HistogramComparator) histogram(ctx context.Context, crop *models.FaceCrop) ([]float64, error) {
	if err := checkCrop(crop); err != nil {
		return nil, err
	}
	return models.Memoize(ctx, crop, fmt.Sprintf("histogram:%d", c.bins), func() ([]float64, error) {
		bins := c.bins
		shift := 8 - uint(math.Log2(float64(bins)))
		hist := make([]float64, bins*bins*bins)
		b := crop.Image.Bounds()
		total := 0.0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := crop.Image.At(x, y).RGBA()
				ri, gi, bi := int(r>>8)>>shift, int(g>>8)>>shift, int(bl>>8)>>shift
				hist[(ri*bins+gi)*bins+bi]++
				total++
			}
		}
		for i := range hist {
			hist[i] /= total
		}
		return hist, nil
	})
}

func bhattacharyya(p, q []float64) float64 {
	var sum float64
	for i := range p {
		sum += math.Sqrt(p[i] * q[i])
	}
	return models.Clamp01(sum)
}
