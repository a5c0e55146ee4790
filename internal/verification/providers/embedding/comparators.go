package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

// ModelComparator scores one embedding architecture by cosine similarity.
type ModelComparator struct {
	metric   models.MetricID
	embedder Embedder
}

func NewModelComparator(metric models.MetricID, embedder Embedder) (*ModelComparator, error) {
	switch metric {
	case models.MetricArcFace, models.MetricFaceNet, models.MetricSFace:
	default:
		return nil, fmt.Errorf("%s is not an embedding model metric", metric)
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	return &ModelComparator{metric: metric, embedder: embedder}, nil
}

func (c *ModelComparator) Metric() models.MetricID { return c.metric }

func (c *ModelComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, b, err := pair(ctx, c.embedder, selfie, document)
	if err != nil {
		return providers.Measurement{}, err
	}
	s, err := cosine(c.embedder.Model(), a, b)
	if err != nil {
		return providers.Measurement{}, err
	}
	return providers.Measurement{Raw: s, Score: (s + 1) / 2}, nil
}

// CosineComparator reports the cosine distance of the reference model's embeddings.
type CosineComparator struct {
	embedder Embedder
}

func NewCosineComparator(embedder Embedder) (*CosineComparator, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	return &CosineComparator{embedder: embedder}, nil
}

func (c *CosineComparator) Metric() models.MetricID { return models.MetricCosine }

func (c *CosineComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, b, err := pair(ctx, c.embedder, selfie, document)
	if err != nil {
		return providers.Measurement{}, err
	}
	s, err := cosine(c.embedder.Model(), a, b)
	if err != nil {
		return providers.Measurement{}, err
	}
	d := 1 - s
	return providers.Measurement{Raw: d, Score: 1 - d/2}, nil
}

// EuclideanComparator reports the L2 distance of un-normalised embeddings.
type EuclideanComparator struct {
	embedder Embedder
	scale    float64
}

func NewEuclideanComparator(embedder Embedder, scale float64) (*EuclideanComparator, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if scale <= 0 {
		return nil, errors.New("euclidean scale must be positive")
	}
	return &EuclideanComparator{embedder: embedder, scale: scale}, nil
}

func (c *EuclideanComparator) Metric() models.MetricID { return models.MetricEuclidean }

func (c *EuclideanComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, b, err := pair(ctx, c.embedder, selfie, document)
	if err != nil {
		return providers.Measurement{}, err
	}
	d := euclidean(a, b)
	return providers.Measurement{Raw: d, Score: math.Max(0, 1-d/c.scale)}, nil
}

// TripletComparator scores the margin m = alpha - d² between unit embeddings
// of a triplet-trained model, squashed by a logistic of the given steepness.
type TripletComparator struct {
	embedder  Embedder
	alpha     float64
	steepness float64
}

func NewTripletComparator(embedder Embedder, alpha, steepness float64) (*TripletComparator, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if steepness <= 0 {
		return nil, errors.New("triplet steepness must be positive")
	}
	return &TripletComparator{embedder: embedder, alpha: alpha, steepness: steepness}, nil
}

func (c *TripletComparator) Metric() models.MetricID { return models.MetricTriplet }

func (c *TripletComparator) Compare(ctx context.Context, selfie, document *models.FaceCrop) (providers.Measurement, error) {
	a, b, err := pair(ctx, c.embedder, selfie, document)
	if err != nil {
		return providers.Measurement{}, err
	}
	s, err := cosine(c.embedder.Model(), a, b)
	if err != nil {
		return providers.Measurement{}, err
	}
	// squared distance between unit vectors
	d2 := 2 - 2*s
	m := c.alpha - d2
	return providers.Measurement{Raw: m, Score: 1 / (1 + math.Exp(-c.steepness*m))}, nil
}
