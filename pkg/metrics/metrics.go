package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the newsletter service metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	WeatherLookupsTotal  *prometheus.CounterVec
	DocumentErrorsTotal  *prometheus.CounterVec
	GateAttemptsTotal    *prometheus.CounterVec
	LibraryReloadsTotal  *prometheus.CounterVec
	LibraryLoadedSeconds prometheus.Gauge
}

// NewCollector registers all metrics under namespace on a fresh registry
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route"},
		),

		WeatherLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_lookups_total",
				Help:      "Weather lookups by result (hit, miss, skipped, error)",
			},
			[]string{"result"},
		),

		DocumentErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_errors_total",
				Help:      "Failed newsletter document loads by document",
			},
			[]string{"document"},
		),

		GateAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_attempts_total",
				Help:      "Password gate submissions by result",
			},
			[]string{"result"},
		),

		LibraryReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "library_reloads_total",
				Help:      "Document library reloads by result (ok, error, stale)",
			},
			[]string{"result"},
		),

		LibraryLoadedSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "library_loaded_timestamp_seconds",
				Help:      "Unix time of the last successful document library load",
			},
		),
	}
}

// ObserveRequest records one finished HTTP request
func (c *Collector) ObserveRequest(route, method, status string, elapsed time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// WeatherLookup counts a weather lookup outcome
func (c *Collector) WeatherLookup(result string) {
	c.WeatherLookupsTotal.WithLabelValues(result).Inc()
}

// DocumentError counts a failed document load
func (c *Collector) DocumentError(document string) {
	c.DocumentErrorsTotal.WithLabelValues(document).Inc()
}

// GateAttempt counts a password gate submission
func (c *Collector) GateAttempt(ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	c.GateAttemptsTotal.WithLabelValues(result).Inc()
}

// LibraryReload counts a reload outcome and stamps successful loads
func (c *Collector) LibraryReload(result string, at time.Time) {
	c.LibraryReloadsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		c.LibraryLoadedSeconds.Set(float64(at.Unix()))
	}
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
