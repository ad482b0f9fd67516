package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
)

// AccessLog emits one entry per request. Successful requests to a quiet route (probes, scrapes)
// are logged at debug so they do not drown the info stream.
func AccessLog(quietRoutes ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietRoutes))
	for _, route := range quietRoutes {
		quiet[route] = struct{}{}
	}

	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		level := accessLevel(status)
		if _, ok := quiet[route]; ok && level == zapcore.InfoLevel {
			level = zapcore.DebugLevel
		}

		log := logger.WithModule("http")
		entry := log.Check(level, "request")
		if entry == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(began)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if v := c.GetString(CtxRequestIDKey); v != "" {
			fields = append(fields, zap.String("request_id", v))
		}
		if v := c.GetString(CtxUserIDKey); v != "" {
			fields = append(fields, zap.String("user_id", v))
		}
		entry.Write(fields...)
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}
