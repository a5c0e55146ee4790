// Package threshold computes the per-request acceptance bar from the
// caller's required score, capture quality and risk context.
package threshold

import (
	"math"

	"faceverify/internal/verification/config"
	"faceverify/internal/verification/models"
)

// Threshold is the applied bar and the adjustments that produced it.
type Threshold struct {
	Value             float64
	Required          float64
	QualityAdjustment float64
	RiskAdjustment    float64
	Relief            float64
}

type Calculator struct {
	cfg config.Threshold
}

func New(cfg config.Threshold) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute raises required for poor captures and risky context. Relief for
// pristine captures only applies when there is no risk adjustment.
func (c *Calculator) Compute(required, selfieQ, documentQ float64, risk models.RiskContext) Threshold {
	minQ := math.Min(selfieQ, documentQ)

	shortfall := math.Max(0, c.cfg.QualityBaseline-minQ)
	qualityAdj := c.cfg.QualitySensitivity * shortfall

	riskAdj := c.riskAdjustment(risk)

	relief := 0.0
	if minQ >= c.cfg.PristineQuality && riskAdj == 0 {
		relief = c.cfg.PristineRelief
	}

	return Threshold{
		Value:             models.Clamp01(required + qualityAdj + riskAdj - relief),
		Required:          required,
		QualityAdjustment: qualityAdj,
		RiskAdjustment:    riskAdj,
		Relief:            relief,
	}
}

func (c *Calculator) riskAdjustment(risk models.RiskContext) float64 {
	if risk.Degraded && c.cfg.FailClosedRisk {
		return c.cfg.RiskCap
	}
	capped := func(n int) float64 {
		return float64(min(max(n, 0), c.cfg.FailureCountCap))
	}
	adj := c.cfg.DeviceFailureStep*capped(risk.DeviceFailures) +
		c.cfg.IPFailureStep*capped(risk.IPFailures)
	if risk.Automated {
		adj += c.cfg.AutomationPenalty
	}
	return math.Min(c.cfg.RiskCap, adj)
}
