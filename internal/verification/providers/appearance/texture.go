package appearance

import (
	"context"
	"image"
	"math/bits"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

const (
	lbpSize = 64
	lbpGrid = 4
	// 58 uniform patterns plus one bin for everything else
	lbpBins = 59
)

// uniformBin maps each 8-bit pattern to its histogram bin.
var uniformBin = func() [256]int {
	var table [256]int
	next := 0
	for code := range 256 {
		c := uint8(code)
		if bits.OnesCount8(c^bits.RotateLeft8(c, 1)) <= 2 {
			table[code] = next
			next++
		} else {
			table[code] = lbpBins - 1
		}
	}
	return table
}()

// TextureComparator compares uniform LBP histograms over a grid of cells by
// the mean symmetric chi-square distance.
type TextureComparator struct{}

func NewTextureComparator() *TextureComparator {
	return &TextureComparator{}
}

func (c *TextureComparator) Metric() models.MetricID { return models.MetricTexture }

func (c *TextureComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, err := c.histograms(ctx, selfie)
	if err != nil {
		return providers.Measurement{}, err
	}
	b, err := c.histograms(ctx, document)
	if err != nil {
		return providers.Measurement{}, err
	}

	var total float64
	for i := range a {
		total += chiSquare(a[i], b[i])
	}
	d := total / float64(len(a))
	return providers.Measurement{Raw: d, Score: 1 - d}, nil
}

func (c *TextureComparator) histograms(ctx context.Context, crop *models.FaceCrop) ([][]float64, error) {
	gray, err := grayscale(ctx, crop, lbpSize)
	if err != nil {
		return nil, err
	}
	return models.Memoize(ctx, crop, "lbp", func() ([][]float64, error) {
		return cellHistograms(gray), nil
	})
}

func cellHistograms(gray *image.Gray) [][]float64 {
	cell := lbpSize / lbpGrid
	hists := make([][]float64, lbpGrid*lbpGrid)
	for i := range hists {
		hists[i] = make([]float64, lbpBins)
	}

	// border pixels have no full neighbourhood
	for y := 1; y < lbpSize-1; y++ {
		for x := 1; x < lbpSize-1; x++ {
			idx := min(y/cell, lbpGrid-1)*lbpGrid + min(x/cell, lbpGrid-1)
			hists[idx][uniformBin[lbpCode(gray, x, y)]]++
		}
	}
	for _, h := range hists {
		var sum float64
		for _, v := range h {
			sum += v
		}
		for i := range h {
			h[i] /= sum
		}
	}
	return hists
}

var lbpOffsets = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}}

func lbpCode(gray *image.Gray, x, y int) uint8 {
	center := gray.GrayAt(x, y).Y
	var code uint8
	for i, off := range lbpOffsets {
		if gray.GrayAt(x+off[0], y+off[1]).Y >= center {
			code |= 1 << uint(i)
		}
	}
	return code
}

// chiSquare is half the symmetric chi-square distance of two distributions,
// which lies in [0,1].
func chiSquare(p, q []float64) float64 {
	var sum float64
	for i := range p {
		if s := p[i] + q[i]; s > 0 {
			d := p[i] - q[i]
			sum += d * d / s
		}
	}
	return models.Clamp01(sum / 2)
}
