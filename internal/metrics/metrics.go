// Package metrics provides Prometheus metrics for the replbox server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "replbox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Build metrics
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replbox_builds_total",
			Help: "Total builds by result",
		},
		[]string{"result"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replbox_build_duration_seconds",
			Help:    "Engine bundle duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	buildsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replbox_builds_rejected_total",
			Help: "Build requests dropped because a build was already running",
		},
	)

	// Persistence and handoff metrics
	fragmentWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replbox_fragment_writes_total",
			Help: "Total fragment writes by status",
		},
		[]string{"status"},
	)

	handoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replbox_handoffs_total",
			Help: "Total offline handoffs by status",
		},
		[]string{"status"},
	)

	offlineFilesCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replbox_offline_files_cached",
			Help: "Number of files held by the offline cache",
		},
	)

	// Session metrics
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replbox_sessions_active",
			Help: "Number of running session stores",
		},
	)

	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replbox_ws_connections_active",
			Help: "Number of open snapshot streams",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordBuild records a finished engine invocation. result is one of
// "success", "error" or "timeout".
func RecordBuild(result string, duration time.Duration) {
	buildsTotal.WithLabelValues(result).Inc()
	buildDuration.Observe(duration.Seconds())
}

// RecordBuildRejected records a build request dropped by single-flight.
func RecordBuildRejected() {
	buildsRejectedTotal.Inc()
}

// RecordFragmentWrite records a fragment persistence attempt.
func RecordFragmentWrite(success bool) {
	fragmentWritesTotal.WithLabelValues(status(success)).Inc()
}

// RecordHandoff records an offline handoff attempt.
func RecordHandoff(success bool) {
	handoffsTotal.WithLabelValues(status(success)).Inc()
}

// SetOfflineFilesCached sets the number of files in the offline cache.
func SetOfflineFilesCached(count int) {
	offlineFilesCached.Set(float64(count))
}

// SetSessionsActive sets the number of running session stores.
func SetSessionsActive(count int) {
	sessionsActive.Set(float64(count))
}

// AddWSConnections adjusts the open snapshot stream gauge.
func AddWSConnections(delta int) {
	wsConnectionsActive.Add(float64(delta))
}

// Middleware returns gin middleware that records request metrics, labeled by
// route pattern so session ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
