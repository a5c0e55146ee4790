package verification

import (
	"context"

	"github.com/google/uuid"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/quality"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Assessor judges one capture and prepares its face crop.
type Assessor interface {
	Assess(ctx context.Context, image []byte) (*quality.Assessment, error)
}

// MetricProvider produces one metric reading for a face pair. It reports
// failures as unavailable readings and must return once ctx is done.
type MetricProvider interface {
	ID() models.MetricID
	Compare(ctx context.Context, selfie, document *models.FaceCrop) models.MetricReading
}

// Recorder is the append-only audit store.
type Recorder interface {
	Record(ctx context.Context, result *models.VerificationResult) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationResult, error)
}

// RiskSource supplies and updates the caller's failure history.
type RiskSource interface {
	Context(ctx context.Context, fingerprint, ip, userAgent string) models.RiskContext
	RecordFailure(ctx context.Context, fingerprint, ip string) error
	Clear(ctx context.Context, fingerprint, ip string) error
}

type noRisk struct{}

func (noRisk) Context(context.Context, string, string, string) models.RiskContext {
	return models.RiskContext{}
}
func (noRisk) RecordFailure(context.Context, string, string) error { return nil }
func (noRisk) Clear(context.Context, string, string) error         { return nil }
