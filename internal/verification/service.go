// Package verification runs the face verification pipeline: quality gating,
// concurrent metric fan-out, ensemble scoring against an adaptive threshold,
// and recording of every verdict to the audit store.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"faceverify/internal/verification/config"
	"faceverify/internal/verification/ensemble"
	"faceverify/internal/verification/metrics"
	"faceverify/internal/verification/models"
	"faceverify/internal/verification/quality"
	"faceverify/internal/verification/threshold"
	dErrors "faceverify/pkg/domain-errors"
	"faceverify/pkg/platform/privacy"
	"faceverify/pkg/platform/sentinel"
	"faceverify/pkg/requestcontext"
)

var tracer = otel.Tracer("faceverify/verification")

// Service orchestrates a single verification end to end. It is safe for
// concurrent use; each Verify call owns its own state.
type Service struct {
	assessor   Assessor
	recorder   Recorder
	providers  []MetricProvider
	risk       RiskSource
	cal        config.Calibration
	aggregator *ensemble.Aggregator
	threshold  *threshold.Calculator
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCalibration replaces the default calibration.
func WithCalibration(cal config.Calibration) Option {
	return func(s *Service) {
		s.cal = cal.Clone()
	}
}

// WithRiskSource enables risk-adjusted thresholds. Without it every request
// is evaluated with an empty risk context.
func WithRiskSource(rs RiskSource) Option {
	return func(s *Service) {
		if rs != nil {
			s.risk = rs
		}
	}
}

// New wires the engine. It fails when the provider set cannot satisfy the
// calibration, so a misconfigured deployment never starts.
func New(assessor Assessor, recorder Recorder, providers []MetricProvider, opts ...Option) (*Service, error) {
	if assessor == nil {
		return nil, errors.New("assessor is required")
	}
	if recorder == nil {
		return nil, errors.New("recorder is required")
	}

	s := &Service{
		assessor: assessor,
		recorder: recorder,
		risk:     noRisk{},
		cal:      config.DefaultCalibration(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}

	seen := make(map[models.MetricID]bool, len(providers))
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider %d is nil", i)
		}
		id := p.ID()
		if !id.IsValid() {
			return nil, fmt.Errorf("provider %d has unknown metric %q", i, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("metric %s wired twice", id)
		}
		seen[id] = true
	}
	if len(providers) < s.cal.MinAvailableMetrics {
		return nil, fmt.Errorf("%d providers wired but %d metrics required", len(providers), s.cal.MinAvailableMetrics)
	}
	if s.cal.MinAgreement > len(providers) {
		return nil, fmt.Errorf("min agreement %d exceeds the %d wired providers", s.cal.MinAgreement, len(providers))
	}
	s.providers = append([]MetricProvider(nil), providers...)

	agg, err := ensemble.New(s.cal)
	if err != nil {
		return nil, fmt.Errorf("invalid ensemble calibration: %w", err)
	}
	s.aggregator = agg
	s.threshold = threshold.New(s.cal.Threshold)

	return s, nil
}

// Verify compares the selfie against the document photo and records the
// verdict. Every verdict, including quality and timeout failures, is
// recorded before it is returned. A cancelled ctx aborts without recording.
func (s *Service) Verify(ctx context.Context, req models.VerificationRequest) (*models.VerificationResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Verify")
	defer span.End()

	required, err := s.requiredScore(req)
	if err != nil {
		return nil, err
	}

	result := models.NewResult(requestcontext.Now(ctx), required, req.DeviceInfo, req.IPAddress)

	rctx, cancel := context.WithTimeout(ctx, s.cal.RequestTimeout)
	defer cancel()

	if err := s.evaluate(rctx, req, result); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.RecordError(ctxErr)
			return nil, ctxErr
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
		}
		markTimedOut(result)
	}

	id, err := s.recorder.Record(ctx, result)
	if err != nil {
		span.RecordError(err)
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record verification result",
				"error", err,
				"reason", result.Reason,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification result")
	}
	result.ID = id

	s.updateRisk(ctx, req, result)
	s.observe(ctx, span, req, result, time.Since(start))

	return result, nil
}

// Find returns a recorded result.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*models.VerificationResult, error) {
	r, err := s.recorder.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification result")
	}
	return r, nil
}

func (s *Service) requiredScore(req models.VerificationRequest) (float64, error) {
	if len(req.Selfie) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "selfie image is required")
	}
	if len(req.Document) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "document image is required")
	}
	if req.RequiredScore == nil {
		return s.cal.RequiredScore, nil
	}
	v := *req.RequiredScore
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "required score must be between 0 and 1")
	}
	return v, nil
}

// evaluate fills result with the verdict. It returns an error only when the
// pipeline could not finish: a context error when time ran out, or an
// internal error the caller should not record.
func (s *Service) evaluate(ctx context.Context, req models.VerificationRequest, result *models.VerificationResult) error {
	selfie, document, err := s.assess(ctx, req, result)
	if err != nil {
		return err
	}
	if selfie == nil || document == nil {
		return nil
	}

	switch {
	case selfie.Quality < s.cal.MinUsableQuality:
		result.Reason = models.ReasonInsufficientQuality
		result.FailedImage = models.ImageSelfie
		return nil
	case document.Quality < s.cal.MinUsableQuality:
		result.Reason = models.ReasonInsufficientQuality
		result.FailedImage = models.ImageDocument
		return nil
	}

	readings := s.fanOut(ctx, selfie.Crop, document.Crop)
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range readings {
		result.ApplyReading(r)
	}

	agg, err := s.aggregator.Aggregate(readings, result.RequiredScore)
	if errors.Is(err, ensemble.ErrInsufficientMetrics) {
		result.Reason = models.ReasonInsufficientMetrics
		result.AvailableMetrics = agg.Available
		return nil
	}
	if err != nil {
		return err
	}

	risk := s.risk.Context(ctx, req.RiskDevice(), req.IPAddress, req.UserAgent)
	// a risk store that stalled until the deadline reports Degraded
	if err := ctx.Err(); err != nil {
		return err
	}
	th := s.threshold.Compute(result.RequiredScore, selfie.Quality, document.Quality, risk)
	agreement := s.aggregator.Agreement(agg, th.Value)
	if err := ctx.Err(); err != nil {
		return err
	}
	decision := Decide(agg.Ensemble, th.Value, agreement, s.cal.MinAgreement, s.cal.Confidence)

	result.EnsembleScore = models.Float(agg.Ensemble)
	result.AdaptiveThreshold = models.Float(th.Value)
	result.AgreementCount = agreement
	result.AvailableMetrics = agg.Available
	result.Passed = decision.Passed
	result.Reason = decision.Reason
	result.Confidence = decision.Confidence

	if s.logger != nil && risk.Elevated() {
		s.logger.InfoContext(ctx, "threshold raised by risk context",
			"required", th.Required,
			"threshold", th.Value,
			"risk_adjustment", th.RiskAdjustment,
			"degraded", risk.Degraded,
		)
	}
	return nil
}

// assess judges both captures concurrently. A nil assessment with a nil
// error means the result already carries the image failure.
func (s *Service) assess(ctx context.Context, req models.VerificationRequest, result *models.VerificationResult) (*quality.Assessment, *quality.Assessment, error) {
	ctx, span := tracer.Start(ctx, "assess")
	defer span.End()

	var (
		wg                sync.WaitGroup
		selfie, document  *quality.Assessment
		selfieErr, docErr error
	)
	wg.Go(func() { selfie, selfieErr = s.assessor.Assess(ctx, req.Selfie) })
	wg.Go(func() { document, docErr = s.assessor.Assess(ctx, req.Document) })
	wg.Wait()

	if selfieErr == nil {
		result.SelfieQuality = models.Float(selfie.Quality)
	}
	if docErr == nil {
		result.DocumentQuality = models.Float(document.Quality)
	}

	for _, failure := range []struct {
		role models.ImageRole
		err  error
	}{
		{models.ImageSelfie, selfieErr},
		{models.ImageDocument, docErr},
	} {
		if failure.err == nil {
			continue
		}
		if errors.Is(failure.err, context.DeadlineExceeded) || errors.Is(failure.err, context.Canceled) {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		result.Reason = imageFailureReason(failure.err)
		result.FailedImage = failure.role
		if s.logger != nil && result.Reason == models.ReasonInternalProviderError {
			s.logger.ErrorContext(ctx, "image assessment failed",
				"image", failure.role,
				"error", failure.err,
			)
		}
		return nil, nil, nil
	}
	return selfie, document, nil
}

func imageFailureReason(err error) models.FailureReason {
	switch {
	case errors.Is(err, quality.ErrImageDecode):
		return models.ReasonImageDecodeError
	case errors.Is(err, quality.ErrNoFaceDetected):
		return models.ReasonNoFaceDetected
	case errors.Is(err, quality.ErrMultipleFacesDetected):
		return models.ReasonMultipleFaces
	default:
		return models.ReasonInternalProviderError
	}
}

// markTimedOut turns a partially evaluated result into a timeout failure.
// Captured qualities stay; partial metric scores do not.
func markTimedOut(result *models.VerificationResult) {
	result.ClearMetricScores()
	result.Passed = false
	result.Reason = models.ReasonTimeout
	result.FailedImage = ""
	result.Confidence = models.ConfidenceLow
}

// updateRisk feeds the verdict back into the caller's history. Failures here
// never change the verdict already recorded.
func (s *Service) updateRisk(ctx context.Context, req models.VerificationRequest, result *models.VerificationResult) {
	var err error
	switch {
	case result.Passed:
		err = s.risk.Clear(ctx, req.RiskDevice(), req.IPAddress)
	case result.Reason.CountsAgainstRisk():
		err = s.risk.RecordFailure(ctx, req.RiskDevice(), req.IPAddress)
	default:
		return
	}
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to update risk history",
			"error", err,
			"ip", privacy.AnonymizeIP(req.IPAddress),
		)
	}
}

func (s *Service) observe(ctx context.Context, span trace.Span, req models.VerificationRequest, result *models.VerificationResult, elapsed time.Duration) {
	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	reason := string(result.Reason)
	if reason == "" {
		reason = "none"
	}

	span.SetAttributes(
		attribute.String("verification.id", result.ID.String()),
		attribute.String("verification.outcome", outcome),
		attribute.String("verification.reason", reason),
		attribute.Int("verification.available_metrics", result.AvailableMetrics),
	)

	s.metrics.IncrementVerification(outcome, reason, string(result.Confidence))
	s.metrics.ObserveVerifyLatency(elapsed)
	if result.EnsembleScore != nil {
		s.metrics.ObserveEnsembleScore(*result.EnsembleScore)
	}
	if result.SelfieQuality != nil {
		s.metrics.ObserveQuality(string(models.ImageSelfie), *result.SelfieQuality)
	}
	if result.DocumentQuality != nil {
		s.metrics.ObserveQuality(string(models.ImageDocument), *result.DocumentQuality)
	}

	if s.logger == nil {
		return
	}
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", result.ID,
		"passed", result.Passed,
		"reason", reason,
		"confidence", result.Confidence,
		"available_metrics", result.AvailableMetrics,
		"agreement", result.AgreementCount,
		"ip", privacy.AnonymizeIP(req.IPAddress),
		"duration_ms", elapsed.Milliseconds(),
	}
	if result.EnsembleScore != nil {
		attrs = append(attrs, "ensemble", *result.EnsembleScore, "threshold", *result.AdaptiveThreshold)
	}
	s.logger.InfoContext(ctx, "verification completed", attrs...)
}
