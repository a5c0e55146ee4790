package models

import (
	"time"

	"github.com/google/uuid"
)

// Confidence buckets the signed margin between ensemble score and threshold.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FailureReason is the audit code attached to a failed verdict.
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonImageDecodeError      FailureReason = "image_decode_error"
	ReasonNoFaceDetected        FailureReason = "no_face_detected"
	ReasonMultipleFaces         FailureReason = "multiple_faces_detected"
	ReasonInsufficientQuality   FailureReason = "insufficient_quality"
	ReasonInsufficientMetrics   FailureReason = "insufficient_metrics"
	ReasonTimeout               FailureReason = "timeout"
	ReasonInternalProviderError FailureReason = "internal_provider_error"
	ReasonNoMatch               FailureReason = "no_match"
	ReasonInsufficientAgreement FailureReason = "insufficient_agreement"
)

// CountsAgainstRisk reports whether the reason reflects a genuine mismatch
// rather than a capture or infrastructure problem.
func (r FailureReason) CountsAgainstRisk() bool {
	return r == ReasonNoMatch || r == ReasonInsufficientAgreement
}

// ImageRole names which input an image failure refers to.
type ImageRole string

const (
	ImageSelfie   ImageRole = "selfie"
	ImageDocument ImageRole = "document"
)

// VerificationResult is the immutable audit record of one verification.
// Pointer fields are nil when the value was never measured, which is
// distinct from a measured zero.
type VerificationResult struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	Supersedes *uuid.UUID

	ArcFaceScore      *float64
	FaceNetScore      *float64
	SFaceScore        *float64
	CosineDistance    *float64
	CosineScore       *float64
	EuclideanDistance *float64
	EuclideanScore    *float64
	HistogramScore    *float64
	LandmarkScore     *float64
	StructuralScore   *float64
	TextureScore      *float64
	TripletScore      *float64

	EnsembleScore     *float64
	AgreementCount    int
	AvailableMetrics  int
	AdaptiveThreshold *float64
	RequiredScore     float64
	Confidence        Confidence
	Passed            bool

	Reason      FailureReason
	FailedImage ImageRole

	SelfieQuality   *float64
	DocumentQuality *float64

	DeviceInfo *string
	IPAddress  *string
}

// NewResult starts a failed-by-default result carrying the request context.
func NewResult(createdAt time.Time, required float64, deviceInfo, ipAddress string) *VerificationResult {
	return &VerificationResult{
		CreatedAt:     createdAt,
		RequiredScore: required,
		Confidence:    ConfidenceLow,
		DeviceInfo:    optionalString(deviceInfo),
		IPAddress:     optionalString(ipAddress),
	}
}

// SimilarityScore is the caller-facing alias of EnsembleScore.
func (r *VerificationResult) SimilarityScore() *float64 {
	return r.EnsembleScore
}

// ApplyReading copies an available reading into its per-metric fields.
// Unavailable readings leave the fields nil.
func (r *VerificationResult) ApplyReading(reading MetricReading) {
	if !reading.Available {
		return
	}
	score := Float(reading.Score)
	switch reading.Metric {
	case MetricArcFace:
		r.ArcFaceScore = score
	case MetricFaceNet:
		r.FaceNetScore = score
	case MetricSFace:
		r.SFaceScore = score
	case MetricCosine:
		r.CosineDistance = Float(reading.Raw)
		r.CosineScore = score
	case MetricEuclidean:
		r.EuclideanDistance = Float(reading.Raw)
		r.EuclideanScore = score
	case MetricHistogram:
		r.HistogramScore = score
	case MetricLandmark:
		r.LandmarkScore = score
	case MetricStructural:
		r.StructuralScore = score
	case MetricTexture:
		r.TextureScore = score
	case MetricTriplet:
		r.TripletScore = score
	}
}

// ClearMetricScores drops every per-metric and aggregate value.
func (r *VerificationResult) ClearMetricScores() {
	r.ArcFaceScore, r.FaceNetScore, r.SFaceScore = nil, nil, nil
	r.CosineDistance, r.CosineScore = nil, nil
	r.EuclideanDistance, r.EuclideanScore = nil, nil
	r.HistogramScore, r.LandmarkScore, r.StructuralScore = nil, nil, nil
	r.TextureScore, r.TripletScore = nil, nil
	r.EnsembleScore, r.AdaptiveThreshold = nil, nil
	r.AgreementCount, r.AvailableMetrics = 0, 0
}

// HasMetricScores reports whether any per-metric field is populated.
func (r *VerificationResult) HasMetricScores() bool {
	for _, f := range r.metricFields() {
		if f != nil {
			return true
		}
	}
	return false
}

func (r *VerificationResult) metricFields() []*float64 {
	return []*float64{
		r.ArcFaceScore, r.FaceNetScore, r.SFaceScore,
		r.CosineDistance, r.CosineScore,
		r.EuclideanDistance, r.EuclideanScore,
		r.HistogramScore, r.LandmarkScore, r.StructuralScore,
		r.TextureScore, r.TripletScore,
	}
}

// Clone returns a deep copy so stores never share pointers with callers.
func (r *VerificationResult) Clone() *VerificationResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Supersedes = cloneUUID(r.Supersedes)
	for _, p := range []**float64{
		&c.ArcFaceScore, &c.FaceNetScore, &c.SFaceScore,
		&c.CosineDistance, &c.CosineScore,
		&c.EuclideanDistance, &c.EuclideanScore,
		&c.HistogramScore, &c.LandmarkScore, &c.StructuralScore,
		&c.TextureScore, &c.TripletScore,
		&c.EnsembleScore, &c.AdaptiveThreshold,
		&c.SelfieQuality, &c.DocumentQuality,
	} {
		if *p != nil {
			*p = Float(**p)
		}
	}
	if r.DeviceInfo != nil {
		c.DeviceInfo = optionalString(*r.DeviceInfo)
	}
	if r.IPAddress != nil {
		c.IPAddress = optionalString(*r.IPAddress)
	}
	return &c
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
