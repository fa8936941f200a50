package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/transfer-service/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware records request count, latency and in-flight gauge. Requests are
// labelled by route pattern so order ids and item codes never become label values.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		start := time.Now()
		c.Next()
		m.DecrementHTTPRequestsInFlight()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the registry in the Prometheus exposition format
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}
