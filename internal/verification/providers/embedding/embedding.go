// Package embedding implements the comparators that work on face embeddings.
// Embeddings are memoised on the crop, so every comparator sharing a model
// triggers one inference per image per request.
package embedding

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

// Embedder produces a fixed-length vector for a face crop.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, crop *models.FaceCrop) ([]float64, error)
}

func memoKey(e Embedder) string {
	return "embedding:" + e.Model()
}

// embed returns the memoised embedding of crop under e.
func embed(ctx context.Context, e Embedder, crop *models.FaceCrop) ([]float64, error) {
	if crop == nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, e.Model(), "missing face crop", nil)
	}
	return models.Memoize(ctx, crop, memoKey(e), func() ([]float64, error) {
		return e.Embed(ctx, crop)
	})
}

// pair embeds both crops concurrently.
func pair(ctx context.Context, e Embedder, selfie, document *models.FaceCrop) ([]float64, []float64, error) {
	var a, b []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = embed(gctx, e, selfie)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = embed(gctx, e, document)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(a) == 0 || len(a) != len(b) {
		return nil, nil, providers.NewProviderError(providers.ErrorBadData, e.Model(),
			fmt.Sprintf("embedding dimensions %d and %d", len(a), len(b)), nil)
	}
	return a, b, nil
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// cosine is the cosine similarity of a and b in [-1,1].
func cosine(model string, a, b []float64) (float64, error) {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0, providers.NewProviderError(providers.ErrorBadData, model, "zero-length embedding", nil)
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return math.Max(-1, math.Min(1, dot/(na*nb))), nil
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
