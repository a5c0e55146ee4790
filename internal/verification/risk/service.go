// Package risk tracks failed verifications per device and network and turns
// that history into the risk context used by the adaptive threshold.
package risk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"faceverify/internal/verification/device"
	"faceverify/internal/verification/models"
	dErrors "faceverify/pkg/domain-errors"
	"faceverify/pkg/platform/privacy"
)

const DefaultWindow = 24 * time.Hour

// Store counts failures per key within an expiring window.
type Store interface {
	Count(ctx context.Context, key string) (int, error)
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
	Clear(ctx context.Context, keys ...string) error
}

type Service struct {
	store  Store
	window time.Duration
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithWindow sets how long a failure counts against a device or address.
func WithWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("risk store is required")
	}
	svc := &Service{
		store:  store,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func deviceKey(fingerprint string) string { return "device:" + fingerprint }
func ipKey(ip string) string              { return "ip:" + ip }

// Context reads the failure history for the caller. A store failure is
// logged and reported as Degraded so the threshold can fail closed.
func (s *Service) Context(ctx context.Context, fingerprint, ip, userAgent string) models.RiskContext {
	rc := models.RiskContext{
		Automated: (userAgent == "" && ip != "") || (userAgent != "" && device.IsAutomated(userAgent)),
	}

	if fingerprint != "" {
		n, err := s.store.Count(ctx, deviceKey(fingerprint))
		if err != nil {
			s.degraded(ctx, "device", ip, err)
			rc.Degraded = true
		}
		rc.DeviceFailures = n
	}
	if ip != "" {
		n, err := s.store.Count(ctx, ipKey(ip))
		if err != nil {
			s.degraded(ctx, "ip", ip, err)
			rc.Degraded = true
		}
		rc.IPFailures = n
	}
	return rc
}

// RecordFailure counts a mismatch against the device and the address.
func (s *Service) RecordFailure(ctx context.Context, fingerprint, ip string) error {
	var errs []error
	if fingerprint != "" {
		if _, err := s.store.Increment(ctx, deviceKey(fingerprint), s.window); err != nil {
			errs = append(errs, err)
		}
	}
	if ip != "" {
		if _, err := s.store.Increment(ctx, ipKey(ip), s.window); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification failure")
	}
	return nil
}

// Clear resets the history after a successful verification.
func (s *Service) Clear(ctx context.Context, fingerprint, ip string) error {
	var keys []string
	if fingerprint != "" {
		keys = append(keys, deviceKey(fingerprint))
	}
	if ip != "" {
		keys = append(keys, ipKey(ip))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.store.Clear(ctx, keys...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear verification failures")
	}
	return nil
}

func (s *Service) degraded(ctx context.Context, scope, ip string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "risk history unavailable",
			"scope", scope,
			"ip", privacy.AnonymizeIP(ip),
			"error", err,
		)
	}
}
