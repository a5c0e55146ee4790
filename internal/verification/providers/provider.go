// Package providers adapts similarity comparators into metric providers that
// always produce a reading. Errors, timeouts and panics become unavailable
// readings; they never escape to the engine.
package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"faceverify/internal/verification/metrics"
	"faceverify/internal/verification/models"
	"faceverify/pkg/platform/circuit"
)

var tracer = otel.Tracer("faceverify/verification")

// Measurement is a comparator's verdict: Raw in the metric's native scale
// and Score normalised so that higher means more likely the same person.
type Measurement struct {
	Raw   float64
	Score float64
}

// Comparator computes one similarity metric over a prepared face pair.
type Comparator interface {
	Metric() models.MetricID
	Compare(ctx context.Context, selfie, document *models.FaceCrop) (Measurement, error)
}

// Provider is the engine-facing wrapper around a Comparator.
type Provider struct {
	comparator Comparator
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithBreaker short-circuits the comparator while b is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Provider) {
		p.breaker = b
	}
}

func New(c Comparator, opts ...Option) (*Provider, error) {
	if c == nil {
		return nil, errors.New("comparator is required")
	}
	if !c.Metric().IsValid() {
		return nil, fmt.Errorf("comparator reports unknown metric %q", c.Metric())
	}
	p := &Provider{comparator: c}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) ID() models.MetricID {
	return p.comparator.Metric()
}

type outcome struct {
	m        Measurement
	err      error
	panicked any
	stack    []byte
}

// Compare runs the comparator under ctx and converts every outcome into a
// reading. It returns as soon as ctx ends even if the comparator does not.
func (p *Provider) Compare(ctx context.Context, selfie, document *models.FaceCrop) models.MetricReading {
	id := p.ID()
	ctx, span := tracer.Start(ctx, "provider."+string(id))
	defer span.End()

	start := time.Now()
	if p.breaker != nil && !p.breaker.Allow(start) {
		reading := models.UnavailableReading(id, models.UnavailableCircuitOpen)
		p.observe(reading)
		span.SetAttributes(attribute.String("unavailable", string(reading.Unavailable)))
		return reading
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{panicked: r, stack: debug.Stack()}
			}
		}()
		m, err := p.comparator.Compare(ctx, selfie, document)
		done <- outcome{m: m, err: err}
	}()

	var reading models.MetricReading
	select {
	case out := <-done:
		reading = p.interpret(ctx, id, out)
	case <-ctx.Done():
		reading = models.UnavailableReading(id, models.UnavailableTimeout)
	}
	reading.Latency = time.Since(start)

	p.trackBreaker(ctx, reading)
	p.observe(reading)
	if reading.Available {
		span.SetAttributes(attribute.Float64("score", reading.Score))
	} else {
		span.SetStatus(codes.Error, string(reading.Unavailable))
		span.SetAttributes(attribute.String("unavailable", string(reading.Unavailable)))
	}
	return reading
}

func (p *Provider) interpret(ctx context.Context, id models.MetricID, out outcome) models.MetricReading {
	if out.panicked != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "metric provider panicked",
				"metric", id,
				"panic", fmt.Sprint(out.panicked),
				"stack", string(out.stack),
			)
		}
		return models.UnavailableReading(id, models.UnavailableInternalError)
	}

	if out.err != nil {
		reason := models.UnavailableProviderError
		switch {
		case errors.Is(out.err, context.DeadlineExceeded) || GetCategory(out.err) == ErrorTimeout:
			reason = models.UnavailableTimeout
		case errors.Is(out.err, ErrModelNotLoaded):
			reason = models.UnavailableNotLoaded
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "metric provider failed",
				"metric", id,
				"reason", reason,
				"error", out.err,
			)
		}
		return models.UnavailableReading(id, reason)
	}

	if !finite(out.m.Raw) || !finite(out.m.Score) {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "metric provider returned non-finite value",
				"metric", id,
				"raw", out.m.Raw,
				"score", out.m.Score,
			)
		}
		return models.UnavailableReading(id, models.UnavailableProviderError)
	}
	return models.NewReading(id, out.m.Raw, out.m.Score)
}

func (p *Provider) trackBreaker(ctx context.Context, reading models.MetricReading) {
	if p.breaker == nil {
		return
	}
	var change circuit.StateChange
	if reading.Available {
		_, change = p.breaker.RecordSuccess()
	} else {
		_, change = p.breaker.RecordFailure()
	}
	if p.logger == nil {
		return
	}
	if change.Opened {
		p.logger.WarnContext(ctx, "metric provider circuit opened", "metric", p.ID(), "breaker", p.breaker.Name())
	}
	if change.Closed {
		p.logger.InfoContext(ctx, "metric provider circuit closed", "metric", p.ID(), "breaker", p.breaker.Name())
	}
}

func (p *Provider) observe(reading models.MetricReading) {
	status := "ok"
	if !reading.Available {
		status = string(reading.Unavailable)
	}
	p.metrics.ObserveProvider(string(reading.Metric), status, reading.Latency)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
