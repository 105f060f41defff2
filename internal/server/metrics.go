// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryRequestsTotal counts completed /api/query requests, partitioned by
	// outcome: "ok" or "error".
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records the wall-clock duration of each successful
	// /api/query request, retrieval and generation included.
	queryDurationSeconds prometheus.Histogram

	// queryLearnedHitsTotal counts queries whose prompt was informed by a
	// previously learned answer.
	queryLearnedHitsTotal prometheus.Counter

	// feedbackPromotionsTotal counts feedback submissions that promoted an
	// answer into the learned collection.
	feedbackPromotionsTotal prometheus.Counter

	// documentsStoredTotal counts document chunks stored via the ingestion
	// endpoints (documents, upload, seed).
	documentsStoredTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of /api/query requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ragline",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of successful /api/query requests, retrieval and generation included.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		queryLearnedHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "query",
			Name:      "learned_hits_total",
			Help:      "Total number of queries answered with a previously learned answer as a prompt hint.",
		}),

		feedbackPromotionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "feedback",
			Name:      "promotions_total",
			Help:      "Total number of feedback submissions that promoted an answer into the learned collection.",
		}),

		documentsStoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "ingest",
			Name:      "documents_stored_total",
			Help:      "Total number of document chunks stored via the ingestion endpoints.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragline",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps h so every request increments httpRequestsTotal and
// observes httpDurationSeconds under the given handler label.
func (m *serverMetrics) instrument(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		h.ServeHTTP(rw, r)

		m.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
