package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeatlas/internal/query"
)

// Metrics holds the server's Prometheus collectors on a private registry,
// so several servers (tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
}

// NewMetrics registers the HTTP, reload and Blueprint-size collectors.
func NewMetrics(engine *query.Engine) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"route"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_blueprint_reloads_total",
			Help: "Blueprint reload attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "atlas_blueprint_modules",
			Help: "Modules in the loaded Blueprint.",
		}, func() float64 { return float64(blueprintSize(engine).modules) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "atlas_blueprint_symbols",
			Help: "Symbols in the loaded Blueprint, nested ones included.",
		}, func() float64 { return float64(blueprintSize(engine).symbols) }),
	)
	return m
}

type sizes struct{ modules, symbols int }

func blueprintSize(engine *query.Engine) sizes {
	v, err := engine.View()
	if err != nil {
		return sizes{}
	}
	return sizes{modules: len(v.ModuleIDs()), symbols: v.SymbolCount()}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records one finished request.
func (m *Metrics) Observe(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordReload counts a reload attempt.
func (m *Metrics) RecordReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// MetricsMiddleware observes every request under its route label.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			m.Observe(routeLabel(r.URL.Path), wrapped.statusCode, time.Since(start))
		})
	}
}
