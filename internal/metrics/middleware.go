package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route claimed, so scanners probing
// random paths collapse into one series.
const unmatchedRoute = "unmatched"

var (
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eulex",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time to serve an API request, by route",
			// /v1/ask waits on the chat model, so the tail reaches minutes.
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30, 60, 120},
		},
		[]string{"method", "route", "status"},
	)

	httpServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eulex",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests served, by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eulex",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "API requests currently being served",
		},
	)

	registerHTTP sync.Once
)

// RegisterHTTPMetrics registers the request collectors with the default
// registry. Safe to call from every router constructor.
func RegisterHTTPMetrics() {
	registerHTTP.Do(func() {
		prometheus.MustRegister(httpLatency, httpServed, httpInFlight)
	})
}

// Middleware counts and times requests by chi route pattern.
func Middleware() func(next http.Handler) http.Handler {
	RegisterHTTPMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"route":  routeLabel(r),
				"status": strconv.Itoa(statusOf(ww)),
			}
			httpLatency.With(labels).Observe(time.Since(start).Seconds())
			httpServed.With(labels).Inc()
		})
	}
}

// routeLabel is the matched pattern, read after routing has run.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww chiMiddleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
