package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khoanguyen-dev/unitime-api/internal/service"
)

// Metrics records per-route request duration and status counts. The route
// template is preferred over the raw path so catalog ids do not explode the
// label space.
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
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
