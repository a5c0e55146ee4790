// Package landmark compares facial geometry: the five landmarks of one face
// are aligned onto the other by the best similarity transform and the
// residual displacement is measured in inter-ocular units.
package landmark

import (
	"context"
	"errors"
	"math"
	"math/cmplx"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

type Comparator struct {
	tolerance float64
}

// NewComparator scores a mean displacement of tolerance (in inter-ocular
// distances) or more as zero.
func NewComparator(tolerance float64) (*Comparator, error) {
	if tolerance <= 0 {
		return nil, errors.New("landmark tolerance must be positive")
	}
	return &Comparator{tolerance: tolerance}, nil
}

func (c *Comparator) Metric() models.MetricID { return models.MetricLandmark }

func (c *Comparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, err := points(selfie)
	if err != nil {
		return providers.Measurement{}, err
	}
	b, err := points(document)
	if err != nil {
		return providers.Measurement{}, err
	}
	if err := ctx.Err(); err != nil {
		return providers.Measurement{}, err
	}

	iod := cmplx.Abs(a[models.LandmarkRightEye] - a[models.LandmarkLeftEye])
	d := residual(a, b) / iod
	return providers.Measurement{Raw: d, Score: math.Max(0, 1-d/c.tolerance)}, nil
}

func points(crop *models.FaceCrop) ([]complex128, error) {
	if crop == nil || len(crop.Landmarks) < models.LandmarkCount {
		return nil, providers.NewProviderError(providers.ErrorBadData, string(models.MetricLandmark),
			"five landmarks required", providers.ErrMissingLandmarks)
	}
	out := make([]complex128, models.LandmarkCount)
	for i := range out {
		p := crop.Landmarks[i]
		out[i] = complex(p.X, p.Y)
	}
	if cmplx.Abs(out[models.LandmarkRightEye]-out[models.LandmarkLeftEye]) == 0 {
		return nil, providers.NewProviderError(providers.ErrorBadData, string(models.MetricLandmark),
			"eyes coincide", providers.ErrMissingLandmarks)
	}
	return out, nil
}

// residual aligns b onto a with the least-squares similarity transform and
// returns the mean point distance.
func residual(a, b []complex128) float64 {
	ca, cb := centroid(a), centroid(b)
	var num complex128
	var den float64
	for i := range a {
		bi := b[i] - cb
		num += cmplx.Conj(bi) * (a[i] - ca)
		den += real(bi)*real(bi) + imag(bi)*imag(bi)
	}
	// degenerate b collapses onto its centroid
	t := complex(0, 0)
	if den > 0 {
		t = num / complex(den, 0)
	}

	var sum float64
	for i := range a {
		aligned := t*(b[i]-cb) + ca
		sum += cmplx.Abs(a[i] - aligned)
	}
	return sum / float64(len(a))
}

func centroid(pts []complex128) complex128 {
	var sum complex128
	for _, p := range pts {
		sum += p
	}
	return sum / complex(float64(len(pts)), 0)
}
