package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// MonitoringHandler serves the health probes and the operator summary.
type MonitoringHandler struct {
	module      *monitoring.Module
	health      *monitoring.HealthManager
	metricsPath string
}

// NewMonitoringHandler works without a module; its probes then report up with no checks.
func NewMonitoringHandler(module *monitoring.Module, cfg app.MonitoringConfig) *MonitoringHandler {
	h := &MonitoringHandler{module: module, health: module.Health()}
	if h.health == nil {
		h.health = monitoring.NewHealthManager()
	}
	if cfg.Prometheus.Enabled {
		h.metricsPath = cfg.Prometheus.Path()
	}
	return h
}

// GET /health (brief readiness, no check details)
func (h *MonitoringHandler) Health(c *gin.Context) {
	h.probe(c, h.health.EvaluateReadiness, false)
}

// GET /health/live
func (h *MonitoringHandler) Live(c *gin.Context) {
	h.probe(c, h.health.EvaluateLiveness, true)
}

// GET /health/ready
func (h *MonitoringHandler) Ready(c *gin.Context) {
	h.probe(c, h.health.EvaluateReadiness, true)
}

func (h *MonitoringHandler) probe(c *gin.Context, evaluate func(context.Context) monitoring.HealthReport, detailed bool) {
	report := evaluate(c.Request.Context())
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}

	payload := gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checked_at": time.Now().UTC(),
	}
	if detailed {
		payload["checks"] = report.Checks
	}
	c.JSON(status, payload)
}

// GET /api/monitoring/summary
func (h *MonitoringHandler) Summary(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"summary": h.module.Summary(),
		"prometheus": gin.H{
			"enabled":  h.metricsPath != "",
			"endpoint": h.metricsPath,
		},
	})
}
