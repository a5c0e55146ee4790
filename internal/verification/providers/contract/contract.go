// Package contract provides shared behavioural checks for comparators and
// deterministic synthetic face crops to run them against.
package contract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"testing"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

// ContractTest defines a comparison whose measurement must satisfy the
// normalised-score contract plus any custom validation.
type ContractTest struct {
	Name         string
	Selfie       *models.FaceCrop
	Document     *models.FaceCrop
	ValidateFunc func(m providers.Measurement) error
}

// ContractSuite is a collection of contract tests for one comparator
type ContractSuite struct {
	Comparator providers.Comparator
	Metric     models.MetricID
	Tests      []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	if s.Comparator.Metric() != s.Metric {
		t.Fatalf("expected metric %s, got %s", s.Metric, s.Comparator.Metric())
	}
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			m, err := s.Comparator.Compare(context.Background(), test.Selfie, test.Document)
			if err != nil {
				t.Fatalf("compare failed: %v", err)
			}
			if math.IsNaN(m.Raw) || math.IsInf(m.Raw, 0) {
				t.Errorf("raw value %v is not finite", m.Raw)
			}
			if m.Score < 0 || m.Score > 1 {
				t.Errorf("score %f out of range [0, 1]", m.Score)
			}
			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(m); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// SymmetryTest checks that swapping the pair does not change the score.
type SymmetryTest struct {
	Comparator providers.Comparator
	A, B       *models.FaceCrop
	Tolerance  float64
}

func (st *SymmetryTest) Run(t *testing.T) {
	ctx := context.Background()
	ab, err := st.Comparator.Compare(ctx, st.A, st.B)
	if err != nil {
		t.Fatalf("compare a,b failed: %v", err)
	}
	ba, err := st.Comparator.Compare(ctx, st.B, st.A)
	if err != nil {
		t.Fatalf("compare b,a failed: %v", err)
	}
	if math.Abs(ab.Score-ba.Score) > st.Tolerance {
		t.Errorf("asymmetric score: %f vs %f", ab.Score, ba.Score)
	}
}

// ErrorContractTest validates that a comparator fails with the expected error
type ErrorContractTest struct {
	Name       string
	Comparator providers.Comparator
	Selfie     *models.FaceCrop
	Document   *models.FaceCrop
	// Expected is matched with errors.Is; Category, when set, with GetCategory.
	Expected error
	Category providers.ErrorCategory
}

func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		_, err := ect.Comparator.Compare(context.Background(), ect.Selfie, ect.Document)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if ect.Expected != nil && !errors.Is(err, ect.Expected) {
			t.Errorf("expected %v, got %v", ect.Expected, err)
		}
		if ect.Category != "" && providers.GetCategory(err) != ect.Category {
			t.Errorf("expected category %s, got %s", ect.Category, providers.GetCategory(err))
		}
	})
}

// Face describes a synthetic face. Identity drives the texture pattern so two
// faces with the same Identity look alike; Brightness shifts every pixel.
type Face struct {
	Identity   uint64
	Size       int
	Brightness int
	// Shift offsets the eyes and mouth, in pixels.
	Shift float64
}

// SyntheticFace renders a deterministic face-like crop with five landmarks.
func SyntheticFace(f Face) *models.FaceCrop {
	size := f.Size
	if size <= 0 {
		size = 160
	}
	s := float64(size)
	rng := rand.New(rand.NewPCG(f.Identity, f.Identity^0x9e3779b97f4a7c15))

	landmarks := []models.Point{
		{X: 0.35*s + f.Shift, Y: 0.40 * s},
		{X: 0.65*s + f.Shift, Y: 0.40 * s},
		{X: 0.50 * s, Y: 0.55*s + f.Shift},
		{X: 0.38 * s, Y: 0.72 * s},
		{X: 0.62 * s, Y: 0.72 * s},
	}

	// identity-specific tint and grain
	tint := [3]int{rng.IntN(60), rng.IntN(60), rng.IntN(60)}
	grain := make([]int, size*size)
	for i := range grain {
		grain[i] = rng.IntN(41) - 20
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cx, cy := s/2, s/2
	for y := range size {
		for x := range size {
			dx, dy := (float64(x)-cx)/(0.38*s), (float64(y)-cy)/(0.48*s)
			base := [3]int{40, 60, 90}
			if dx*dx+dy*dy <= 1 {
				base = [3]int{190, 150, 120}
			}
			for _, lm := range landmarks[:2] {
				if math.Hypot(float64(x)-lm.X, float64(y)-lm.Y) < 0.06*s {
					base = [3]int{30, 25, 20}
				}
			}
			if math.Abs(float64(y)-landmarks[3].Y) < 0.015*s && float64(x) > landmarks[3].X && float64(x) < landmarks[4].X {
				base = [3]int{120, 40, 40}
			}
			g := grain[y*size+x] + f.Brightness
			img.Set(x, y, color.RGBA{
				R: clampByte(base[0] + tint[0] + g),
				G: clampByte(base[1] + tint[1] + g),
				B: clampByte(base[2] + tint[2] + g),
				A: 255,
			})
		}
	}
	return models.NewFaceCrop(img, img.Bounds(), landmarks, 0.99)
}

func clampByte(v int) uint8 {
	return uint8(max(0, min(255, v)))
}
