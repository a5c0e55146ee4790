package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/verifications/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/v1/verifications/a", "/v1/verifications/b", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	t.Run("requests are labelled by route pattern", func(t *testing.T) {
		assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/verifications/{id}", "GET", "404")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/healthz", "GET", "200")))
	})

	t.Run("nothing left in flight", func(t *testing.T) {
		assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	})

	t.Run("handler exposes the registry", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "faceverify_http_requests_total")
	})
}
