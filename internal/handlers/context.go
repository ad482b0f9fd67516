package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
)

// requestContext falls back to Background for contexts created without a request.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// sessionIDs reads the identifiers middleware.Auth stores on the context.
func sessionIDs(c *gin.Context) (userID, accountID string) {
	return c.GetString(middleware.CtxUserIDKey), c.GetString(middleware.CtxAccountIDKey)
}
