package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	"github.com/rbmarketing1011/restaunax-backend/internal/handlers"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
)

// registerMonitoringRoutes mounts the probes at the root and under /api, the Prometheus
// endpoint, and the authenticated summary. Metrics and summary need a module.
func registerMonitoringRoutes(r *gin.Engine, protected *gin.RouterGroup, cfg app.MonitoringConfig, mon *monitoring.Module) {
	handler := handlers.NewMonitoringHandler(mon, cfg)

	if cfg.Health.Enabled {
		for _, group := range []gin.IRouter{r, r.Group("/api")} {
			group.GET("/health", handler.Health)
			group.GET("/health/live", handler.Live)
			group.GET("/health/ready", handler.Ready)
		}
	}

	if mon == nil {
		return
	}
	if cfg.Prometheus.Enabled {
		r.GET(cfg.Prometheus.Path(), gin.WrapH(mon.Handler()))
	}
	if cfg.Health.Enabled || cfg.Prometheus.Enabled {
		protected.GET("/monitoring/summary", handler.Summary)
	}
}
