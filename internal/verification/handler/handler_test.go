package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"faceverify/internal/verification/handler/mocks"
	"faceverify/internal/verification/models"
	dErrors "faceverify/pkg/domain-errors"
	"faceverify/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service
type VerificationHandlerSuite struct {
	suite.Suite
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) newRouter(checks map[string]HealthCheck) (chi.Router, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(svc, logger, checks)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterHealth(r)
	return r, svc
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func passedResult() *models.VerificationResult {
	r := models.NewResult(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 0.75, "Pixel 8", "203.0.113.7")
	r.ID = uuid.MustParse("5b1f5b55-8f0e-4a43-9d7b-4ef3a4b0a8b1")
	r.ArcFaceScore = models.Float(0.93)
	r.EnsembleScore = models.Float(0.9)
	r.AdaptiveThreshold = models.Float(0.75)
	r.AgreementCount = 9
	r.AvailableMetrics = 9
	r.Passed = true
	r.Confidence = models.ConfidenceHigh
	return r
}

func (s *VerificationHandlerSuite) post(r http.Handler, body any, mutate ...func(*http.Request) *http.Request) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/verifications", body)
	for _, m := range mutate {
		req = m(req)
	}
	return testutil.DoRequest(r, req)
}

// =============================================================================
// POST /v1/verifications
// =============================================================================

func (s *VerificationHandlerSuite) TestVerify() {
	s.Run("passes request context to the service and returns the record", func() {
		r, svc := s.newRouter(nil)
		svc.EXPECT().Verify(gomock.Any(), models.VerificationRequest{
			Selfie:        []byte("selfie"),
			Document:      []byte("document"),
			RequiredScore: models.Float(0.8),
			DeviceInfo:    " Pixel 8 ",
			IPAddress:     "203.0.113.7",
			UserAgent:     "okhttp/4.12.0",
		}).Return(passedResult(), nil)

		w := s.post(r, map[string]any{
			"selfie":         encode([]byte("selfie")),
			"document":       "data:image/png;base64," + encode([]byte("document")),
			"required_score": 0.8,
			"device_info":    " Pixel 8 ",
		}, func(req *http.Request) *http.Request {
			return testutil.WithDevice(testutil.WithClient(req, "203.0.113.7", "okhttp/4.12.0"), "fp-ignored")
		})

		s.Equal(http.StatusOK, w.Code)
		body := testutil.UnmarshalResponse[map[string]any](s.T(), w)
		s.Equal("5b1f5b55-8f0e-4a43-9d7b-4ef3a4b0a8b1", body["id"])
		s.Equal(true, body["passed"])
		s.Equal("high", body["confidence"])
		s.Equal(0.9, body["similarity_score"])
		s.Nil(body["reason"])

		scores := body["scores"].(map[string]any)
		s.Equal(0.93, scores["arcface"])
		s.Contains(scores, "facenet", "unavailable metrics are present as null")
		s.Nil(scores["facenet"])
	})

	s.Run("derived fingerprint is used without device_info", func() {
		r, svc := s.newRouter(nil)
		svc.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.VerificationRequest) (*models.VerificationResult, error) {
				s.Equal("fp-123", req.DeviceFingerprint)
				s.Empty(req.DeviceInfo)
				return passedResult(), nil
			})

		w := s.post(r, map[string]any{
			"selfie":   encode([]byte("selfie")),
			"document": encode([]byte("document")),
		}, func(req *http.Request) *http.Request {
			return testutil.WithDevice(req, "fp-123")
		})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("blank device_info is kept verbatim and falls back to the fingerprint", func() {
		r, svc := s.newRouter(nil)
		svc.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.VerificationRequest) (*models.VerificationResult, error) {
				s.Equal("fp-123", req.DeviceFingerprint)
				s.Equal("  \t", req.DeviceInfo)
				return passedResult(), nil
			})

		w := s.post(r, map[string]any{
			"selfie":      encode([]byte("selfie")),
			"document":    encode([]byte("document")),
			"device_info": "  \t",
		}, func(req *http.Request) *http.Request {
			return testutil.WithDevice(req, "fp-123")
		})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("failed verdicts are still 200", func() {
		r, svc := s.newRouter(nil)
		failed := models.NewResult(time.Now(), 0.75, "", "")
		failed.Reason = models.ReasonInsufficientQuality
		failed.FailedImage = models.ImageDocument
		failed.DocumentQuality = models.Float(0.1)
		svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(failed, nil)

		w := s.post(r, map[string]any{"selfie": encode([]byte("a")), "document": encode([]byte("b"))})

		s.Equal(http.StatusOK, w.Code)
		body := testutil.UnmarshalResponse[map[string]any](s.T(), w)
		s.Equal(false, body["passed"])
		s.Equal("insufficient_quality", body["reason"])
		s.Equal("document", body["failed_image"])
		s.Nil(body["ensemble_score"])
	})
}

func (s *VerificationHandlerSuite) TestVerifyRejectsBadRequests() {
	cases := []struct {
		name string
		body any
		code string
		want string
	}{
		{"missing selfie", map[string]any{"document": encode([]byte("b"))}, "validation_error", "selfie is required"},
		{"bad base64", map[string]any{"selfie": "***", "document": encode([]byte("b"))}, "validation_error", "selfie is not valid base64"},
		{"required score out of range", map[string]any{"selfie": encode([]byte("a")), "document": encode([]byte("b")), "required_score": 1.2}, "validation_error", "required_score must be between 0 and 1"},
		{"not JSON", "selfie", "bad_request", "invalid JSON body"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			r, _ := s.newRouter(nil)

			w := s.post(r, tc.body)

			s.Contains(w.Body.String(), tc.want)
			testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, tc.code)
		})
	}
}

func (s *VerificationHandlerSuite) TestVerifyServiceErrors() {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", dErrors.New(dErrors.CodeValidation, "selfie image is required"), http.StatusBadRequest},
		{"internal", dErrors.Wrap(errors.New("disk full"), dErrors.CodeInternal, "failed to record verification result"), http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			r, svc := s.newRouter(nil)
			svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			w := s.post(r, map[string]any{"selfie": encode([]byte("a")), "document": encode([]byte("b"))})

			s.Equal(tc.status, w.Code)
			s.NotContains(w.Body.String(), "disk full", "internal causes are not exposed")
		})
	}
}

// =============================================================================
// GET /v1/verifications/{id}
// =============================================================================

func (s *VerificationHandlerSuite) TestGetVerification() {
	s.Run("found", func() {
		r, svc := s.newRouter(nil)
		res := passedResult()
		svc.EXPECT().Find(gomock.Any(), res.ID).Return(res, nil)

		w := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/v1/verifications/"+res.ID.String(), nil))

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), res.ID.String())
	})

	s.Run("unknown id", func() {
		r, svc := s.newRouter(nil)
		svc.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "verification not found"))

		w := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/v1/verifications/"+uuid.NewString(), nil))

		testutil.AssertStatusAndError(s.T(), w, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id", func() {
		r, _ := s.newRouter(nil)

		w := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/v1/verifications/not-a-uuid", nil))

		testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "bad_request")
	})
}

// =============================================================================
// GET /healthz
// =============================================================================

func (s *VerificationHandlerSuite) TestHealth() {
	s.Run("no checks", func() {
		r, _ := s.newRouter(nil)
		w := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"status":"ok"}`, w.Body.String())
	})

	s.Run("failing dependency", func() {
		r, _ := s.newRouter(map[string]HealthCheck{
			"model_server": func(context.Context) error { return errors.New("connection refused") },
			"postgres":     func(context.Context) error { return nil },
		})
		w := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.JSONEq(`{"status":"degraded","checks":{"model_server":"connection refused","postgres":"ok"}}`, w.Body.String())
	})
}
