// Package metrics provides Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ValuationsTotal counts completed valuations, partitioned by model.
	ValuationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_valuations_total",
		Help: "Total number of valuations completed",
	}, []string{"model"})

	// ValuationLatency tracks pricing latency per model.
	ValuationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskengine_valuation_latency_seconds",
		Help:    "Valuation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	// SolverIterationsExhausted counts implied-volatility solves that
	// failed to converge.
	SolverIterationsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskengine_iv_solver_failures_total",
		Help: "Implied-volatility solves that did not converge",
	})

	// CurveRefreshes counts accepted rate-curve snapshots.
	CurveRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskengine_curve_refreshes_total",
		Help: "Rate curve snapshots accepted",
	})

	// InvalidInputs counts requests rejected by instrument validation,
	// partitioned by offending field.
	InvalidInputs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_invalid_inputs_total",
		Help: "Requests rejected by input validation",
	}, []string{"field"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskengine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
