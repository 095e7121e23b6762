package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recurring-todo-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so arbitrary paths do not
// become metric labels.
const unmatchedRoute = "unmatched"

// Metrics records the duration and status of every request, labelled by route template.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(began))
	}
}
