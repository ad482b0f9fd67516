package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	iauth "github.com/rbmarketing1011/restaunax-backend/internal/auth"
	"github.com/rbmarketing1011/restaunax-backend/internal/handlers"
	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
)

// Dependencies carries everything the router wires into handlers and middleware.
type Dependencies struct {
	Config     *app.Config
	JWT        *iauth.JWTService
	RateStore  middleware.RateStore
	Monitoring *monitoring.Module

	Registration *services.RegistrationService
	Verification *services.EmailVerificationService
	Auth         *services.AuthService
	Users        *services.UserService
	Accounts     *services.AccountService
	Orders       *services.OrderService
	Audit        *services.AuditService
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.JWT == nil:
		return errors.New("jwt service must be provided")
	case d.Registration == nil, d.Verification == nil, d.Auth == nil:
		return errors.New("auth services must be provided")
	case d.Users == nil, d.Accounts == nil, d.Orders == nil, d.Audit == nil:
		return errors.New("domain services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	limits := cfg.Auth.RateLimits

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.AccessLog("/health", "/health/live", "/health/ready", cfg.Monitoring.Prometheus.Path()))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	r.Use(middleware.RateLimit(deps.RateStore, rule("global", limits.Global)))

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.Auth(deps.JWT))

	registerMonitoringRoutes(r, protected, cfg.Monitoring, deps.Monitoring)

	registerAuthRoutes(api, protected, authRouteDeps{
		Handler:   handlers.NewAuthHandler(deps.Registration, deps.Verification, deps.Auth),
		RateStore: deps.RateStore,
		Limits:    limits,
	})
	registerTenantRoutes(protected,
		handlers.NewProfileHandler(deps.Users),
		handlers.NewAccountHandler(deps.Accounts, deps.Audit),
		handlers.NewOrderHandler(deps.Orders),
	)

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

func rule(scope string, window app.RateLimitWindow) middleware.RateLimitRule {
	return middleware.RateLimitRule{Scope: scope, Limit: window.Limit, Window: window.Window}
}
