package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"faceverify/internal/verification/models"
)

type CalibrationSuite struct {
	suite.Suite
}

func TestCalibrationSuite(t *testing.T) {
	suite.Run(t, new(CalibrationSuite))
}

func (s *CalibrationSuite) writeFile(body string) string {
	path := filepath.Join(s.T().TempDir(), "calibration.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

// =============================================================================
// Defaults
// =============================================================================

func (s *CalibrationSuite) TestDefaults() {
	cal := DefaultCalibration()

	s.Run("defaults are valid", func() {
		s.NoError(cal.Validate())
	})

	s.Run("every metric is weighted equally and has a cutoff", func() {
		for _, m := range models.AllMetrics() {
			s.Equal(1.0, cal.Weight(m), m)
			s.Contains(cal.Cutoffs, m)
		}
	})
}

func (s *CalibrationSuite) TestClone() {
	cal := DefaultCalibration()
	clone := cal.Clone()
	clone.Weights[models.MetricTexture] = 0
	clone.Cutoffs[models.MetricTexture] = 0.99

	s.Equal(1.0, cal.Weights[models.MetricTexture])
	s.Equal(0.50, cal.Cutoffs[models.MetricTexture])
}

// =============================================================================
// Validation
// =============================================================================

func (s *CalibrationSuite) TestValidate() {
	cases := map[string]func(c *Calibration){
		"negative weight":              func(c *Calibration) { c.Weights[models.MetricHistogram] = -1 },
		"unknown metric weight":        func(c *Calibration) { c.Weights["iris"] = 1 },
		"cutoff above one":             func(c *Calibration) { c.Cutoffs[models.MetricLandmark] = 1.2 },
		"zero min agreement":           func(c *Calibration) { c.MinAgreement = 0 },
		"zero min available":           func(c *Calibration) { c.MinAvailableMetrics = 0 },
		"required score above one":     func(c *Calibration) { c.RequiredScore = 1.5 },
		"non-positive high margin":     func(c *Calibration) { c.Confidence.HighMargin = 0 },
		"provider exceeds request":     func(c *Calibration) { c.ProviderTimeout = c.RequestTimeout + time.Second },
		"quality weights sum to zero":  func(c *Calibration) { c.Quality = Quality{SharpnessReference: 1, MinFaceSize: 1, CropSize: 1} },
		"non-positive euclidean scale": func(c *Calibration) { c.Metrics.EuclideanScale = 0 },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			cal := DefaultCalibration()
			mutate(&cal)
			s.Error(cal.Validate())
		})
	}
}

// =============================================================================
// Loading
// =============================================================================

func (s *CalibrationSuite) TestLoadCalibration() {
	s.Run("empty path returns defaults", func() {
		cal, err := LoadCalibration("")
		s.Require().NoError(err)
		s.Equal(DefaultCalibration().RequiredScore, cal.RequiredScore)
	})

	s.Run("file overlays only the keys it names", func() {
		path := s.writeFile(`
required_score: 0.8
weights:
  texture: 0.5
cutoffs:
  histogram: 0.65
provider_timeout: 1500ms
threshold:
  risk_cap: 0.2
`)
		cal, err := LoadCalibration(path)
		s.Require().NoError(err)

		s.Equal(0.8, cal.RequiredScore)
		s.Equal(0.5, cal.Weights[models.MetricTexture])
		s.Equal(1.0, cal.Weights[models.MetricArcFace], "unnamed weights keep defaults")
		s.Equal(0.65, cal.Cutoffs[models.MetricHistogram])
		s.Equal(1500*time.Millisecond, cal.ProviderTimeout)
		s.Equal(0.2, cal.Threshold.RiskCap)
		s.Equal(0.80, cal.Threshold.QualityBaseline)
	})

	s.Run("environment references are expanded", func() {
		s.T().Setenv("FV_TEST_REQUIRED", "0.82")
		path := s.writeFile("required_score: ${FV_TEST_REQUIRED}\n")

		cal, err := LoadCalibration(path)
		s.Require().NoError(err)
		s.Equal(0.82, cal.RequiredScore)
	})

	s.Run("invalid file content is rejected", func() {
		path := s.writeFile("weights:\n  arcface: -2\n")
		_, err := LoadCalibration(path)
		s.Error(err)
		s.Contains(err.Error(), "invalid calibration")
	})

	s.Run("missing file is an error", func() {
		_, err := LoadCalibration(filepath.Join(s.T().TempDir(), "absent.yaml"))
		s.Error(err)
	})
}
