package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	signFallbacksTotal prometheus.Counter
	interrogateTotal   *prometheus.CounterVec
)

// InitMetrics registers application collectors. Safe to call more than
// once; registration happens a single time.
func InitMetrics() {
	initOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagevault_http_requests_total",
			Help: "HTTP requests processed, by method, path and status.",
		}, []string{"method", "path", "status"})

		requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagevault_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		signFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagevault_sign_fallbacks_total",
			Help: "Presigned URL generations that degraded to the unsigned canonical URL.",
		})

		interrogateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagevault_interrogate_requests_total",
			Help: "Image interrogation attempts, by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(requestsTotal, requestDuration, signFallbacksTotal, interrogateTotal)
	})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		if requestsTotal != nil {
			requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		}
		if requestDuration != nil {
			requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		}
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// ObserveSignFallback counts a signing failure that degraded to the
// canonical URL.
func ObserveSignFallback() {
	if signFallbacksTotal != nil {
		signFallbacksTotal.Inc()
	}
}

// ObserveInterrogate counts an interrogation attempt by outcome
// ("ok", "empty", "connection_error", "timeout", "bad_status").
func ObserveInterrogate(outcome string) {
	if interrogateTotal != nil {
		interrogateTotal.WithLabelValues(outcome).Inc()
	}
}
