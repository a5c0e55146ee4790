package verification

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"faceverify/internal/verification/models"
)

// fanOut runs every provider concurrently, each under its own timeout, and
// returns one reading per provider in wiring order. A provider that times
// out or fails only loses its own reading.
func (s *Service) fanOut(ctx context.Context, selfie, document *models.FaceCrop) []models.MetricReading {
	readings := make([]models.MetricReading, len(s.providers))

	var g errgroup.Group
	for i, p := range s.providers {
		g.Go(func() error {
			readings[i] = s.compare(ctx, p, selfie, document)
			return nil
		})
	}
	_ = g.Wait()

	return readings
}

func (s *Service) compare(ctx context.Context, p MetricProvider, selfie, document *models.FaceCrop) (reading models.MetricReading) {
	id := p.ID()
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "metric provider escaped with panic",
					"metric", id,
					"panic", fmt.Sprint(r),
				)
			}
			reading = models.UnavailableReading(id, models.UnavailableInternalError)
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, s.cal.ProviderTimeout)
	defer cancel()

	reading = p.Compare(pctx, selfie, document)
	reading.Metric = id
	return sanitize(reading)
}

// sanitize keeps a malformed reading from any MetricProvider out of the
// ensemble and the stored record.
func sanitize(r models.MetricReading) models.MetricReading {
	if !r.Available {
		return r
	}
	if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) || math.IsNaN(r.Raw) || math.IsInf(r.Raw, 0) {
		return models.UnavailableReading(r.Metric, models.UnavailableProviderError)
	}
	r.Score = models.Clamp01(r.Score)
	return r
}
