package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// RateLimitRule describes one fixed-window limit. Scope names the rule in keys and metrics.
type RateLimitRule struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimit returns a middleware that limits requests per (clientIP, route) within a fixed
// window. A zero limit or window disables the rule.
func RateLimit(store RateStore, rule RateLimitRule) gin.HandlerFunc {
	scope := rule.Scope
	if scope == "" {
		scope = "global"
	}

	return func(c *gin.Context) {
		if store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := "ratelimit:" + scope + ":" + c.ClientIP() + "|" + route

		count, ttl, err := store.Increment(c.Request.Context(), key, rule.Window)
		if err != nil {
			// Fail open so a cache outage does not take the API down with it.
			logger.WithModule("ratelimit").Warn("rate store unavailable",
				zap.String("scope", scope),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := rule.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		resetIn := int(ttl.Round(time.Second) / time.Second)
		if resetIn < 0 {
			resetIn = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetIn))

		if count > rule.Limit {
			c.Header("Retry-After", strconv.Itoa(resetIn))
			monitoring.RecordRateLimitRejection(scope)
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
