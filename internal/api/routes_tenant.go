package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/handlers"
)

// registerTenantRoutes mounts everything scoped to the caller's account. protected already
// carries the auth middleware.
func registerTenantRoutes(protected *gin.RouterGroup, profile *handlers.ProfileHandler, account *handlers.AccountHandler, orders *handlers.OrderHandler) {
	p := protected.Group("/profile")
	p.GET("", profile.Get)
	p.PATCH("", profile.Update)
	p.POST("/password", profile.ChangePassword)

	a := protected.Group("/account")
	a.GET("", account.Get)
	a.PATCH("", account.Update)
	a.DELETE("", account.Delete)
	a.GET("/audit-logs", account.AuditLogs)

	o := protected.Group("/orders")
	o.GET("", orders.List)
	o.POST("", orders.Create)
	o.GET("/stats", orders.Stats)
	o.GET("/:id", orders.Get)
	o.PATCH("/:id", orders.Update)
	o.PATCH("/:id/status", orders.UpdateStatus)
	o.DELETE("/:id", orders.Delete)
}
