// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headshot_generations_submitted_total",
		Help: "Generations accepted for processing",
	}, []string{"provider", "mode"})

	GenerationsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headshot_generations_finished_total",
		Help: "Generations that reached a terminal state",
	}, []string{"provider", "status"})

	GenerationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headshot_generations_rejected_total",
		Help: "Submissions rejected before a job was created",
	}, []string{"reason"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "headshot_provider_request_duration_seconds",
		Help:    "Latency of upstream generation calls",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "mode", "outcome"})

	RehostOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headshot_rehost_total",
		Help: "Output re-hosting attempts by outcome",
	}, []string{"outcome"})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headshot_ledger_operations_total",
		Help: "Ledger operations by kind and result",
	}, []string{"operation", "result"})

	StaleJobsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headshot_stale_generations_expired_total",
		Help: "Generations failed by the staleness sweep",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "headshot_http_requests_total",
		Help: "HTTP requests processed, labeled by route and status",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "headshot_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and latency by chi route pattern, so ids
// in paths do not explode label cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
