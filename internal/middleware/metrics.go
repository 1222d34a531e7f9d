package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openschool/gradebook-api/internal/service"
)

// Metrics observes every request's method, route and latency. The scrape
// endpoint itself is excluded so the histogram tracks gradebook traffic and
// not the monitoring loop.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			// Unrouted requests (404s) would explode label cardinality if
			// recorded by raw URL.
			path = "unmatched"
		}
		if path == "/metrics" {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
