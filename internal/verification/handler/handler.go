package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"faceverify/internal/verification/models"
	dErrors "faceverify/pkg/domain-errors"
	"faceverify/pkg/platform/httputil"
	"faceverify/pkg/requestcontext"
)

// Service defines the interface for verification operations.
type Service interface {
	Verify(ctx context.Context, req models.VerificationRequest) (*models.VerificationResult, error)
	Find(ctx context.Context, id uuid.UUID) (*models.VerificationResult, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler handles verification endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	checks  map[string]HealthCheck
}

// New creates a new verification Handler. checks are run by /healthz.
func New(service Service, logger *slog.Logger, checks map[string]HealthCheck) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		checks:  checks,
	}
}

// Register registers the authenticated verification routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/verifications", h.handleVerify)
	r.Get("/v1/verifications/{id}", h.handleGetVerification)
}

// RegisterHealth registers the unauthenticated liveness route.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verification := models.VerificationRequest{
		Selfie:        req.selfie,
		Document:      req.document,
		RequiredScore: req.RequiredScore,
		DeviceInfo:    req.DeviceInfo,
		IPAddress:     requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
	}
	// device_info is stored verbatim; blank input falls back to the fingerprint
	if strings.TrimSpace(req.DeviceInfo) == "" {
		verification.DeviceFingerprint = requestcontext.DeviceFingerprint(ctx)
	}

	result, err := h.service.Verify(ctx, verification)
	if err != nil {
		h.writeServiceError(ctx, w, err, "verification failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result.View())
}

func (h *Handler) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid verification id"))
		return
	}

	result, err := h.service.Find(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load verification")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result.View())
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := requestcontext.RequestID(ctx)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = dErrors.Wrap(err, dErrors.CodeTimeout, "verification timed out")
	case errors.Is(err, context.Canceled):
		h.logger.InfoContext(ctx, "client cancelled verification", "request_id", requestID)
		return
	}

	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	default:
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
