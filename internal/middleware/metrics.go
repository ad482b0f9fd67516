package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
)

// Metrics tracks in-flight requests and observes latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := monitoring.BeginRequest()
		defer func() {
			done(c.Request.Method, c.FullPath(), c.Writer.Status())
		}()
		c.Next()
	}
}
