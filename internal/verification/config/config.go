// Package config holds the immutable calibration of the verification engine:
// ensemble weights, vote cutoffs, gates, threshold adjustments and timeouts.
package config

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"faceverify/internal/verification/models"
)

// Calibration is loaded once at startup and copied into the engine.
type Calibration struct {
	// RequiredScore is the platform baseline used when a caller supplies none.
	RequiredScore       float64 `yaml:"required_score"`
	MinUsableQuality    float64 `yaml:"min_usable_quality"`
	MinAvailableMetrics int     `yaml:"min_available_metrics"`
	MinAgreement        int     `yaml:"min_agreement"`

	Weights map[models.MetricID]float64 `yaml:"weights"`
	Cutoffs map[models.MetricID]float64 `yaml:"cutoffs"`

	Threshold  Threshold    `yaml:"threshold"`
	Confidence Confidence   `yaml:"confidence"`
	Quality    Quality      `yaml:"quality"`
	Metrics    MetricParams `yaml:"metrics"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
}

// Threshold tunes the adaptive acceptance bar.
type Threshold struct {
	QualityBaseline    float64 `yaml:"quality_baseline"`
	QualitySensitivity float64 `yaml:"quality_sensitivity"`
	PristineQuality    float64 `yaml:"pristine_quality"`
	PristineRelief     float64 `yaml:"pristine_relief"`

	DeviceFailureStep float64 `yaml:"device_failure_step"`
	IPFailureStep     float64 `yaml:"ip_failure_step"`
	FailureCountCap   int     `yaml:"failure_count_cap"`
	AutomationPenalty float64 `yaml:"automation_penalty"`
	RiskCap           float64 `yaml:"risk_cap"`
	// FailClosedRisk applies RiskCap when the risk history cannot be read.
	FailClosedRisk bool `yaml:"fail_closed_risk"`
}

// Confidence holds the margin cut points for the confidence buckets.
type Confidence struct {
	HighMargin float64 `yaml:"high_margin"`
	LowMargin  float64 `yaml:"low_margin"`
}

// Quality tunes the per-image quality assessor.
type Quality struct {
	SharpnessWeight    float64 `yaml:"sharpness_weight"`
	ResolutionWeight   float64 `yaml:"resolution_weight"`
	ExposureWeight     float64 `yaml:"exposure_weight"`
	SharpnessReference float64 `yaml:"sharpness_reference"`
	MinFaceSize        int     `yaml:"min_face_size"`
	DetectorFloor      float64 `yaml:"detector_floor"`
	CropSize           int     `yaml:"crop_size"`
	CropMargin         float64 `yaml:"crop_margin"`
}

// MetricParams holds metric-specific normalisation constants.
type MetricParams struct {
	CosineModel       string  `yaml:"cosine_model"`
	EuclideanModel    string  `yaml:"euclidean_model"`
	EuclideanScale    float64 `yaml:"euclidean_scale"`
	TripletModel      string  `yaml:"triplet_model"`
	TripletAlpha      float64 `yaml:"triplet_alpha"`
	TripletSteepness  float64 `yaml:"triplet_steepness"`
	LandmarkTolerance float64 `yaml:"landmark_tolerance"`
}

// DefaultCalibration weights every metric equally. Cutoffs sit at each
// metric's own equal-error point on its normalised scale.
func DefaultCalibration() Calibration {
	weights := make(map[models.MetricID]float64)
	for _, m := range models.AllMetrics() {
		weights[m] = 1.0
	}
	return Calibration{
		RequiredScore:       0.75,
		MinUsableQuality:    0.35,
		MinAvailableMetrics: 5,
		MinAgreement:        5,
		Weights:             weights,
		Cutoffs: map[models.MetricID]float64{
			models.MetricArcFace:    0.68,
			models.MetricFaceNet:    0.70,
			models.MetricSFace:      0.68,
			models.MetricCosine:     0.68,
			models.MetricEuclidean:  0.50,
			models.MetricHistogram:  0.60,
			models.MetricLandmark:   0.60,
			models.MetricStructural: 0.60,
			models.MetricTexture:    0.50,
			models.MetricTriplet:    0.50,
		},
		Threshold: Threshold{
			QualityBaseline:    0.80,
			QualitySensitivity: 0.25,
			PristineQuality:    0.95,
			PristineRelief:     0,
			DeviceFailureStep:  0.02,
			IPFailureStep:      0.01,
			FailureCountCap:    5,
			AutomationPenalty:  0.05,
			RiskCap:            0.15,
			FailClosedRisk:     true,
		},
		Confidence: Confidence{
			HighMargin: 0.10,
			LowMargin:  0.10,
		},
		Quality: Quality{
			SharpnessWeight:    0.4,
			ResolutionWeight:   0.3,
			ExposureWeight:     0.3,
			SharpnessReference: 150,
			MinFaceSize:        112,
			DetectorFloor:      0.5,
			CropSize:           160,
			CropMargin:         0.2,
		},
		Metrics: MetricParams{
			CosineModel:       "arcface",
			EuclideanModel:    "facenet",
			EuclideanScale:    2.0,
			TripletModel:      "facenet",
			TripletAlpha:      1.0,
			TripletSteepness:  6.0,
			LandmarkTolerance: 0.25,
		},
		RequestTimeout:  8 * time.Second,
		ProviderTimeout: 2 * time.Second,
	}
}

// Clone deep-copies the calibration so no caller can mutate an engine's copy.
func (c Calibration) Clone() Calibration {
	c.Weights = maps.Clone(c.Weights)
	c.Cutoffs = maps.Clone(c.Cutoffs)
	return c
}

// Weight returns the configured weight of m, or 0 if unset.
func (c Calibration) Weight(m models.MetricID) float64 {
	return c.Weights[m]
}

// Validate rejects calibrations the engine cannot run with.
func (c Calibration) Validate() error {
	var errs []error
	if !unit(c.RequiredScore) {
		errs = append(errs, fmt.Errorf("required_score %v outside [0,1]", c.RequiredScore))
	}
	if !unit(c.MinUsableQuality) {
		errs = append(errs, fmt.Errorf("min_usable_quality %v outside [0,1]", c.MinUsableQuality))
	}
	if c.MinAvailableMetrics < 1 {
		errs = append(errs, errors.New("min_available_metrics must be at least 1"))
	}
	if c.MinAgreement < 1 {
		errs = append(errs, errors.New("min_agreement must be at least 1"))
	}
	for m, w := range c.Weights {
		if !m.IsValid() {
			errs = append(errs, fmt.Errorf("weight for unknown metric %q", m))
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("weight for %s is negative", m))
		}
	}
	for m, cut := range c.Cutoffs {
		if !m.IsValid() {
			errs = append(errs, fmt.Errorf("cutoff for unknown metric %q", m))
		}
		if !unit(cut) {
			errs = append(errs, fmt.Errorf("cutoff for %s outside [0,1]", m))
		}
	}
	if c.Confidence.HighMargin <= 0 || c.Confidence.LowMargin <= 0 {
		errs = append(errs, errors.New("confidence margins must be positive"))
	}
	if c.Threshold.QualitySensitivity < 0 || c.Threshold.RiskCap < 0 || c.Threshold.PristineRelief < 0 {
		errs = append(errs, errors.New("threshold adjustments must be non-negative"))
	}
	q := c.Quality
	if q.SharpnessWeight < 0 || q.ResolutionWeight < 0 || q.ExposureWeight < 0 ||
		q.SharpnessWeight+q.ResolutionWeight+q.ExposureWeight <= 0 {
		errs = append(errs, errors.New("quality weights must be non-negative with a positive sum"))
	}
	if q.SharpnessReference <= 0 || q.MinFaceSize <= 0 || q.CropSize <= 0 {
		errs = append(errs, errors.New("quality sharpness_reference, min_face_size and crop_size must be positive"))
	}
	if c.Metrics.EuclideanScale <= 0 || c.Metrics.LandmarkTolerance <= 0 || c.Metrics.TripletSteepness <= 0 {
		errs = append(errs, errors.New("metric normalisation constants must be positive"))
	}
	if c.RequestTimeout <= 0 || c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.ProviderTimeout > c.RequestTimeout {
		errs = append(errs, errors.New("provider_timeout must not exceed request_timeout"))
	}
	return errors.Join(errs...)
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
