package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverMethods(t *testing.T) {
	m := New()
	m.SubmissionRecorded("exam", "A")
	m.SubmissionRecorded("exam", "A")
	m.SubmissionRecorded("quiz", "F")
	m.SubmissionFailed()
	m.SessionAutoSubmitted()
	m.PercentileComputed(55.6)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("exam", "A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("quiz", "F")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.autoSubmitted))
	assert.Equal(t, 1, testutil.CollectAndCount(m.percentiles))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SubmissionRecorded("exam", "A")
		m.SubmissionFailed()
		m.PercentileComputed(10)
		m.SessionAutoSubmitted()
	})
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	assert.NotNil(t, h)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/assessments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assessments/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/assessments/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/assessments/{id}",status="404"} 3`)
}
