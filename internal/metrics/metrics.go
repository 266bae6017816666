// Package metrics exposes Prometheus collectors for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics satisfies the observer interfaces of the assessment, performance
// and session packages. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	submissions   *prometheus.CounterVec
	failures      prometheus.Counter
	percentiles   prometheus.Histogram
	autoSubmitted prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_submissions_total",
				Help: "Recorded submissions by assessment kind and grade",
			},
			[]string{"kind", "grade"},
		),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_submission_failures_total",
			Help: "Submissions graded but not persisted",
		}),
		percentiles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_percentile",
			Help:    "Percentiles returned by performance comparisons",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		autoSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_sessions_autosubmitted_total",
			Help: "Timed sessions finished by their deadline",
		}),
	}
	m.reg.MustRegister(
		m.requests, m.duration, m.submissions, m.failures, m.percentiles, m.autoSubmitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SubmissionRecorded(kind, grade string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, grade).Inc()
}

func (m *Metrics) SubmissionFailed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) PercentileComputed(p float64) {
	if m == nil {
		return
	}
	m.percentiles.Observe(p)
}

func (m *Metrics) SessionAutoSubmitted() {
	if m == nil {
		return
	}
	m.autoSubmitted.Inc()
}

// Middleware counts requests by chi route pattern so ids don't explode the
// label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
