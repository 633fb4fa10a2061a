package middleware

import (
	"strconv"
	"time"

	"github.com/ankitojha2705/marketmind/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency by route template. Long-lived
// event streams are counted but kept out of the latency histogram.
func Metrics(streamingPaths ...string) gin.HandlerFunc {
	streaming := make(map[string]bool, len(streamingPaths))
	for _, p := range streamingPaths {
		streaming[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		if !streaming[path] {
			metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		}
	}
}
