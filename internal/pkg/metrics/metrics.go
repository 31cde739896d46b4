package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfind",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// External provider metrics
	DiscoveryCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "discovery",
		Name:      "calls_total",
		Help:      "Total calls issued to the discovery provider",
	}, []string{"operation", "outcome"})

	RouteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "routing",
		Name:      "calls_total",
		Help:      "Total calls issued to the routing provider",
	}, []string{"outcome"})

	SpeechFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "speech",
		Name:      "failures_total",
		Help:      "Total absorbed speech synthesis failures",
	})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total geo cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total geo cache misses",
	}, []string{"operation"})

	// Tracking metrics
	TrackPointsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "tracking",
		Name:      "points_recorded_total",
		Help:      "Total track points that passed the displacement filter",
	})

	LocationSamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfind",
		Subsystem: "tracking",
		Name:      "location_samples_total",
		Help:      "Total raw location samples ingested",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfind",
		Subsystem: "session",
		Name:      "active",
		Help:      "Current number of live navigation sessions",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfind",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
