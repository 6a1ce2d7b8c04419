package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/service"
)

// unroutedLabel stands in for paths that matched no registered route.
// Recording the raw URL would let scanners mint unbounded label values.
const unroutedLabel = "unrouted"

// Metrics returns middleware that captures request metrics using the provided service.
// Probe and scrape endpoints are excluded so they do not dominate the series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		path := c.FullPath()
		switch path {
		case "/metrics", "/health", "/ready":
			c.Next()
			return
		case "":
			path = unroutedLabel
		}

		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
