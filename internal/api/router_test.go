package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	iauth "github.com/rbmarketing1011/restaunax-backend/internal/auth"
	"github.com/rbmarketing1011/restaunax-backend/internal/database/testutil"
	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/mail"
)

func testConfig() *app.Config {
	return &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "router-test-secret-with-enough-bytes", Issuer: "test", TTL: time.Hour},
			Verification: app.VerificationSettings{
				TTL:     time.Hour,
				BaseURL: "http://localhost:3000/verify-email",
			},
		},
	}
}

func testDependencies(t *testing.T, cfg *app.Config, mon *monitoring.Module) Dependencies {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store := middleware.NewMemoryRateStore()
	t.Cleanup(store.Close)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	verifier, err := services.NewEmailVerificationService(db, mail.NewRecorder(), cfg.Auth.VerificationOptions()...)
	require.NoError(t, err)
	registration, err := services.NewRegistrationService(db, verifier, audit)
	require.NoError(t, err)
	authSvc, err := services.NewAuthService(db, jwtSvc, audit)
	require.NoError(t, err)
	users, err := services.NewUserService(db, verifier, audit)
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, audit)
	require.NoError(t, err)
	orders, err := services.NewOrderService(db, audit)
	require.NoError(t, err)

	return Dependencies{
		Config:       cfg,
		JWT:          jwtSvc,
		RateStore:    store,
		Monitoring:   mon,
		Registration: registration,
		Verification: verifier,
		Auth:         authSvc,
		Users:        users,
		Accounts:     accounts,
		Orders:       orders,
		Audit:        audit,
	}
}

func newTestModule(t *testing.T) *monitoring.Module {
	t.Helper()
	mon, err := monitoring.NewModule(monitoring.WithoutRuntimeCollectors())
	require.NoError(t, err)
	return mon
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, err := NewRouter(Dependencies{})
	require.ErrorContains(t, err, "config")

	deps := testDependencies(t, testConfig(), nil)
	deps.Orders = nil
	_, err = NewRouter(deps)
	require.ErrorContains(t, err, "domain services")
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, err := NewRouter(testDependencies(t, testConfig(), newTestModule(t)))
	require.NoError(t, err)

	for _, path := range []string{"/health", "/health/live", "/api/health/ready"} {
		w := serve(router, http.MethodGet, path)
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	for _, path := range []string{"/api/auth/me", "/api/profile", "/api/account", "/api/orders", "/api/orders/stats"} {
		w := serve(router, http.MethodGet, path)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.NotEmpty(t, w.Header().Get("WWW-Authenticate"), path)
	}

	w := serve(router, http.MethodGet, "/api/auth/verify-email")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = serve(router, http.MethodGet, "/api/unknown")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(router, http.MethodPut, "/api/orders")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Contains(t, w.Body.String(), "METHOD_NOT_ALLOWED")

	w = serve(router, http.MethodOptions, "/api/orders")
	require.Equal(t, http.StatusNoContent, w.Code, "preflight is answered before routing")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mon, err := monitoring.NewModule()
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Monitoring.Prometheus.Endpoint = " /internal/metrics "

	router, err := NewRouter(testDependencies(t, cfg, mon))
	require.NoError(t, err)

	w := serve(router, http.MethodGet, "/internal/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "go_goroutines"), w.Body.String())

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}

func TestRouterMonitoringDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Monitoring = app.MonitoringConfig{}
	router, err := NewRouter(testDependencies(t, cfg, newTestModule(t)))
	require.NoError(t, err)

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/health").Code)
}

func TestRouterHealthReflectsChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mon := newTestModule(t)
	mon.Health().RegisterReadiness(monitoring.NewCheck("database", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	router, err := NewRouter(testDependencies(t, testConfig(), mon))
	require.NoError(t, err)

	w := serve(router, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var payload struct {
		Success bool                     `json:"success"`
		Status  string                   `json:"status"`
		Checks  []monitoring.ProbeResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, "down", payload.Status)
	require.Len(t, payload.Checks, 1)
	require.Equal(t, "database", payload.Checks[0].Component)

	w = serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")
}

func TestRouterHealthWithoutModule(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, err := NewRouter(testDependencies(t, testConfig(), nil))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/health").Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}
