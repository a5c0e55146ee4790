package quality

import "math"

const (
	clipLow  = 5
	clipHigh = 250
)

// laplacianVariance is the variance of the 4-neighbour Laplacian over the
// interior pixels. Blurry images have little high-frequency energy.
func laplacianVariance(lum []float64, width int) float64 {
	if width < 3 || len(lum) < 3*width {
		return 0
	}
	height := len(lum) / width
	var sum, sumSq float64
	n := 0
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			v := 4*lum[i] - lum[i-1] - lum[i+1] - lum[i-width] - lum[i+width]
			sum += v
			sumSq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// exposureScore rewards mean luminance near mid-grey and penalises
// the fraction of crushed or blown pixels.
func exposureScore(lum []float64) float64 {
	if len(lum) == 0 {
		return 0
	}
	var sum float64
	clipped := 0
	for _, v := range lum {
		sum += v
		if v <= clipLow || v >= clipHigh {
			clipped++
		}
	}
	mean := sum / float64(len(lum))
	balance := 1 - math.Abs(mean-128)/128
	return clamp01(balance * (1 - float64(clipped)/float64(len(lum))))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
