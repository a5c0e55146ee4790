// Package ensemble combines metric readings into one score and counts how
// many metrics corroborate the verdict.
package ensemble

import (
	"errors"
	"fmt"

	"faceverify/internal/verification/config"
	"faceverify/internal/verification/models"
)

var ErrInsufficientMetrics = errors.New("insufficient metrics available")

// Aggregate is the ensemble view of one request's readings.
type Aggregate struct {
	Ensemble  float64
	Agreement int
	Available int
	// Votes holds each available metric's match vote.
	Votes map[models.MetricID]bool
	// Weights holds the renormalised weight of each available metric.
	Weights map[models.MetricID]float64
}

type Aggregator struct {
	weights      map[models.MetricID]float64
	cutoffs      map[models.MetricID]float64
	minAvailable int
}

// New copies the weights and cutoffs out of cal. Every metric needs a cutoff;
// a metric without a weight votes but does not contribute to the score.
func New(cal config.Calibration) (*Aggregator, error) {
	cal = cal.Clone()
	for _, m := range models.AllMetrics() {
		if _, ok := cal.Cutoffs[m]; !ok {
			return nil, fmt.Errorf("no cutoff configured for %s", m)
		}
	}
	for m, w := range cal.Weights {
		if w < 0 {
			return nil, fmt.Errorf("weight for %s is negative", m)
		}
	}
	if cal.MinAvailableMetrics < 1 {
		return nil, errors.New("min available metrics must be at least 1")
	}
	return &Aggregator{
		weights:      cal.Weights,
		cutoffs:      cal.Cutoffs,
		minAvailable: cal.MinAvailableMetrics,
	}, nil
}

// Aggregate computes the renormalised weighted mean of the available
// readings and the agreement against threshold.
func (a *Aggregator) Aggregate(readings []models.MetricReading, threshold float64) (Aggregate, error) {
	available, err := a.available(readings)
	if err != nil {
		return Aggregate{}, err
	}
	if len(available) < a.minAvailable {
		return Aggregate{Available: len(available)}, fmt.Errorf("%w: %d of %d required", ErrInsufficientMetrics, len(available), a.minAvailable)
	}

	// sum in canonical metric order so the result is independent of input order
	var total, weighted float64
	for _, m := range models.AllMetrics() {
		r, ok := available[m]
		if !ok {
			continue
		}
		w := a.weights[m]
		total += w
		weighted += w * r.Score
	}
	if total <= 0 {
		return Aggregate{Available: len(available)}, fmt.Errorf("%w: available metrics carry no weight", ErrInsufficientMetrics)
	}

	agg := Aggregate{
		Ensemble:  models.Clamp01(weighted / total),
		Available: len(available),
		Votes:     make(map[models.MetricID]bool, len(available)),
		Weights:   make(map[models.MetricID]float64, len(available)),
	}
	for m, r := range available {
		agg.Votes[m] = a.vote(r)
		agg.Weights[m] = a.weights[m] / total
	}
	agg.Agreement = countAgreement(agg.Votes, agg.Ensemble >= threshold)
	return agg, nil
}

// Agreement recounts the metrics whose vote matches the verdict sign of
// ensemble against threshold.
func (a *Aggregator) Agreement(agg Aggregate, threshold float64) int {
	return countAgreement(agg.Votes, agg.Ensemble >= threshold)
}

func (a *Aggregator) vote(r models.MetricReading) bool {
	return r.Score >= a.cutoffs[r.Metric]
}

func (a *Aggregator) available(readings []models.MetricReading) (map[models.MetricID]models.MetricReading, error) {
	out := make(map[models.MetricID]models.MetricReading, len(readings))
	for _, r := range readings {
		if !r.Available {
			continue
		}
		if !r.Metric.IsValid() {
			return nil, fmt.Errorf("reading for unknown metric %q", r.Metric)
		}
		if _, dup := out[r.Metric]; dup {
			return nil, fmt.Errorf("duplicate reading for %s", r.Metric)
		}
		out[r.Metric] = r
	}
	return out, nil
}

func countAgreement(votes map[models.MetricID]bool, match bool) int {
	n := 0
	for _, v := range votes {
		if v == match {
			n++
		}
	}
	return n
}
