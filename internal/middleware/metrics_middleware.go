package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route. The
// route template is used, not the raw path, so ids don't explode the
// label space.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
