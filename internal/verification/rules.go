package verification

import (
	"faceverify/internal/verification/config"
	"faceverify/internal/verification/models"
)

// Decision is the verdict for a request whose metrics ran.
type Decision struct {
	Passed     bool
	Reason     models.FailureReason
	Confidence models.Confidence
}

// Decide applies the acceptance rule: the ensemble must reach the threshold
// and enough metrics must corroborate it.
// This is pure domain logic - no I/O, no side effects.
func Decide(ensemble, threshold float64, agreement, minAgreement int, margins config.Confidence) Decision {
	d := Decision{
		Passed:     ensemble >= threshold && agreement >= minAgreement,
		Confidence: ClassifyConfidence(ensemble-threshold, margins),
	}
	switch {
	case d.Passed:
		d.Reason = models.ReasonNone
	case ensemble < threshold:
		d.Reason = models.ReasonNoMatch
	default:
		d.Reason = models.ReasonInsufficientAgreement
	}
	return d
}

// ClassifyConfidence buckets the signed margin between score and threshold.
func ClassifyConfidence(margin float64, margins config.Confidence) models.Confidence {
	switch {
	case margin >= margins.HighMargin:
		return models.ConfidenceHigh
	case margin <= -margins.LowMargin:
		return models.ConfidenceLow
	default:
		return models.ConfidenceMedium
	}
}
