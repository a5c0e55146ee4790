package appearance

import (
	"context"
	"image"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

const (
	ssimSize   = 64
	ssimWindow = 8
	ssimStride = 4
)

var (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// StructuralComparator computes mean SSIM over sliding windows of the
// grey crops.
type StructuralComparator struct{}

func NewStructuralComparator() *StructuralComparator {
	return &StructuralComparator{}
}

func (c *StructuralComparator) Metric() models.MetricID { return models.MetricStructural }

func (c *StructuralComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, err := grayscale(ctx, selfie, ssimSize)
	if err != nil {
		return providers.Measurement{}, err
	}
	b, err := grayscale(ctx, document, ssimSize)
	if err != nil {
		return providers.Measurement{}, err
	}
	if err := ctx.Err(); err != nil {
		return providers.Measurement{}, err
	}
	s := meanSSIM(a, b)
	return providers.Measurement{Raw: s, Score: (s + 1) / 2}, nil
}

func meanSSIM(a, b *image.Gray) float64 {
	size := a.Bounds().Dx()
	var total float64
	n := 0
	for y := 0; y+ssimWindow <= size; y += ssimStride {
		for x := 0; x+ssimWindow <= size; x += ssimStride {
			total += windowSSIM(a, b, x, y)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func windowSSIM(a, b *image.Gray, x0, y0 int) float64 {
	const count = ssimWindow * ssimWindow
	var sa, sb, saa, sbb, sab float64
	for y := y0; y < y0+ssimWindow; y++ {
		for x := x0; x < x0+ssimWindow; x++ {
			va := float64(a.GrayAt(x, y).Y)
			vb := float64(b.GrayAt(x, y).Y)
			sa += va
			sb += vb
			saa += va * va
			sbb += vb * vb
			sab += va * vb
		}
	}
	ma, mb := sa/count, sb/count
	varA := saa/count - ma*ma
	varB := sbb/count - mb*mb
	cov := sab/count - ma*mb

	num := (2*ma*mb + ssimC1) * (2*cov + ssimC2)
	den := (ma*ma + mb*mb + ssimC1) * (varA + varB + ssimC2)
	return num / den
}
