package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareLabelsRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware)
	router.Get("/api/v1/documents/{docId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	pattern := "/api/v1/documents/{docId}"
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", pattern, "200"))

	for _, id := range []string{"aaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbb"} {
		req := httptest.NewRequest("GET", "/api/v1/documents/"+id, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// Distinct ids collapse into one pattern label.
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", pattern, "200"))
	require.Equal(t, before+2, after)

	for _, id := range []string{"aaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbb"} {
		raw := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/documents/"+id, "200"))
		require.Zero(t, raw)
	}
}
