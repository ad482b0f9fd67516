package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	"github.com/rbmarketing1011/restaunax-backend/internal/handlers"
	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
)

type authRouteDeps struct {
	Handler   *handlers.AuthHandler
	RateStore middleware.RateStore
	Limits    app.RateLimitSettings
}

func registerAuthRoutes(api, protected *gin.RouterGroup, deps authRouteDeps) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(deps.RateStore, rule("register", deps.Limits.Register)), deps.Handler.Register)
		auth.POST("/login", middleware.RateLimit(deps.RateStore, rule("login", deps.Limits.Login)), deps.Handler.Login)
		auth.GET("/verify-email", deps.Handler.VerifyEmail)
		auth.POST("/resend-verification", middleware.RateLimit(deps.RateStore, rule("resend", deps.Limits.Resend)), deps.Handler.ResendVerification)
	}

	protected.GET("/auth/me", deps.Handler.Me)
}
