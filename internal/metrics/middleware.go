package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics is Gin middleware that records HTTP request metrics.
// It tracks request count and latency by method, route pattern and status code.
// Scrapes of /metrics itself are not recorded.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath() // route pattern keeps label cardinality bounded
		if path == "/metrics" {
			c.Next()
			return
		}
		if path == "" {
			path = "unknown"
		}
		start := time.Now()
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
