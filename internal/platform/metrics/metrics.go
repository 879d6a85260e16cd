// Package metrics holds the HTTP-level Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP request metrics for the application
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// New registers the HTTP metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "carreg_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}

// Middleware observes every request. Routes are labelled by their chi
// pattern so path parameters such as VINs do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.
			WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
