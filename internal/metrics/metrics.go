// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the pinstore gateway.
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
	once sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinstore",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pinstore",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	calls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinstore",
		Name:      "calls_total",
		Help:      "Gateway calls by kind (execute, query), action and result.",
	}, []string{"kind", "action", "result"})

	bucketObjects = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinstore",
		Subsystem: "bucket",
		Name:      "objects",
		Help:      "Objects currently stored.",
	})

	bucketBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pinstore",
		Subsystem: "bucket",
		Name:      "bytes",
		Help:      "Bytes currently stored, raw and compressed.",
	}, []string{"form"})

	compressionRatio = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pinstore",
		Name:      "compression_ratio",
		Help:      "Raw over compressed size of stored objects.",
		Buckets:   []float64{1, 1.25, 1.5, 2, 3, 5, 10, 20},
	}, []string{"algorithm"})
)

// InitMetrics registers the collectors with the default registry. It is
// safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, calls, bucketObjects, bucketBytes, compressionRatio)
	})
}

// Middleware records request counts and latencies per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// ObserveCall counts one gateway call. err decides the result label.
func ObserveCall(kind, action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	calls.WithLabelValues(kind, action, result).Inc()
}

// SetBucketUsage publishes the bucket statistics.
func SetBucketUsage(objects, size, compressedSize uint64) {
	bucketObjects.Set(float64(objects))
	bucketBytes.WithLabelValues("raw").Set(float64(size))
	bucketBytes.WithLabelValues("compressed").Set(float64(compressedSize))
}

// ObserveCompression records the ratio achieved for a stored object.
func ObserveCompression(algorithm string, ratio float64) {
	compressionRatio.WithLabelValues(algorithm).Observe(ratio)
}
