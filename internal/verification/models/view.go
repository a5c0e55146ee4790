package models

import "time"

// ResultView is the wire form of a VerificationResult shared by the HTTP API
// and the results topic. Unmeasured values serialise as null, never zero.
type ResultView struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"created_at"`
	Supersedes *string `json:"supersedes"`

	Passed            bool     `json:"passed"`
	Confidence        string   `json:"confidence"`
	Reason            *string  `json:"reason"`
	FailedImage       *string  `json:"failed_image"`
	EnsembleScore     *float64 `json:"ensemble_score"`
	SimilarityScore   *float64 `json:"similarity_score"`
	AgreementCount    int      `json:"agreement_count"`
	AvailableMetrics  int      `json:"available_metrics"`
	AdaptiveThreshold *float64 `json:"adaptive_threshold"`
	RequiredScore     float64  `json:"required_score"`

	Scores MetricScoresView `json:"scores"`

	SelfieQuality   *float64 `json:"selfie_quality"`
	DocumentQuality *float64 `json:"document_quality"`

	DeviceInfo *string `json:"device_info"`
	IPAddress  *string `json:"ip_address"`
}

// MetricScoresView groups the per-metric fields.
type MetricScoresView struct {
	ArcFace           *float64 `json:"arcface"`
	FaceNet           *float64 `json:"facenet"`
	SFace             *float64 `json:"sface"`
	CosineDistance    *float64 `json:"cosine_distance"`
	Cosine            *float64 `json:"cosine"`
	EuclideanDistance *float64 `json:"euclidean_distance"`
	Euclidean         *float64 `json:"euclidean"`
	Histogram         *float64 `json:"histogram"`
	Landmark          *float64 `json:"landmark"`
	Structural        *float64 `json:"structural"`
	Texture           *float64 `json:"texture"`
	Triplet           *float64 `json:"triplet"`
}

// View converts the result to its wire form.
func (r *VerificationResult) View() ResultView {
	v := ResultView{
		ID:                r.ID.String(),
		CreatedAt:         r.CreatedAt.UTC().Format(time.RFC3339Nano),
		Passed:            r.Passed,
		Confidence:        string(r.Confidence),
		EnsembleScore:     r.EnsembleScore,
		SimilarityScore:   r.SimilarityScore(),
		AgreementCount:    r.AgreementCount,
		AvailableMetrics:  r.AvailableMetrics,
		AdaptiveThreshold: r.AdaptiveThreshold,
		RequiredScore:     r.RequiredScore,
		Scores: MetricScoresView{
			ArcFace:           r.ArcFaceScore,
			FaceNet:           r.FaceNetScore,
			SFace:             r.SFaceScore,
			CosineDistance:    r.CosineDistance,
			Cosine:            r.CosineScore,
			EuclideanDistance: r.EuclideanDistance,
			Euclidean:         r.EuclideanScore,
			Histogram:         r.HistogramScore,
			Landmark:          r.LandmarkScore,
			Structural:        r.StructuralScore,
			Texture:           r.TextureScore,
			Triplet:           r.TripletScore,
		},
		SelfieQuality:   r.SelfieQuality,
		DocumentQuality: r.DocumentQuality,
		DeviceInfo:      r.DeviceInfo,
		IPAddress:       r.IPAddress,
	}
	if r.Supersedes != nil {
		s := r.Supersedes.String()
		v.Supersedes = &s
	}
	if r.Reason != ReasonNone {
		s := string(r.Reason)
		v.Reason = &s
	}
	if r.FailedImage != "" {
		s := string(r.FailedImage)
		v.FailedImage = &s
	}
	return v
}
