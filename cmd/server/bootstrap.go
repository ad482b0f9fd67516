package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/api"
	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	"github.com/rbmarketing1011/restaunax-backend/internal/app/maintenance"
	iauth "github.com/rbmarketing1011/restaunax-backend/internal/auth"
	"github.com/rbmarketing1011/restaunax-backend/internal/cache"
	"github.com/rbmarketing1011/restaunax-backend/internal/database"
	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring/checks"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/mail"
)

const probeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Monitoring *monitoring.Module
	Cleaner    *maintenance.Cleaner
	Router     *gin.Engine
}

// bootstrapRuntime opens storage, wires services and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false
	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.WithNamespace(cfg.Monitoring.Prometheus.Namespace))
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)

	var (
		cacheStore cache.Store
		dbStore    *cache.DatabaseStore
	)
	if cfg.Cache.Redis.Enabled {
		stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limits", zap.Error(err))
		} else {
			cacheStore = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	if cacheStore == nil {
		dbStore = cache.NewDatabaseStore(stack.DB)
		cacheStore = dbStore
	}
	rateStore := middleware.NewCacheRateStore(cacheStore)

	registerHealthChecks(stack, cfg)

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	resend := cfg.Auth.RateLimits.ResendPerEmail
	verifyOpts := append(cfg.Auth.VerificationOptions(),
		services.WithVerificationAudit(auditSvc),
		services.WithResendLimiter(middleware.NewEmailRateLimiter(rateStore, resend.Limit, resend.Window)),
	)
	verifier, err := services.NewEmailVerificationService(stack.DB, mailer, verifyOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	policy := cfg.Auth.PasswordPolicy()
	registration, err := services.NewRegistrationService(stack.DB, verifier, auditSvc, services.WithPasswordPolicy(policy))
	if err != nil {
		return nil, fmt.Errorf("initialise registration service: %w", err)
	}
	authSvc, err := services.NewAuthService(stack.DB, jwtSvc, auditSvc,
		services.WithRequireVerifiedEmail(cfg.Auth.RequireVerifiedEmail))
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}
	users, err := services.NewUserService(stack.DB, verifier, auditSvc, services.WithUserPasswordPolicy(policy))
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	accounts, err := services.NewAccountService(stack.DB, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}
	orders, err := services.NewOrderService(stack.DB, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise order service: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:       cfg,
		JWT:          jwtSvc,
		RateStore:    rateStore,
		Monitoring:   stack.Monitoring,
		Registration: registration,
		Verification: verifier,
		Auth:         authSvc,
		Users:        users,
		Accounts:     accounts,
		Orders:       orders,
		Audit:        auditSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = newCleaner(cfg, verifier, auditSvc, dbStore)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	success = true
	return stack, nil
}

func newCleaner(cfg *app.Config, tokens maintenance.ExpiryPurger, audit maintenance.AuditPruner, dbStore *cache.DatabaseStore) *maintenance.Cleaner {
	opts := []maintenance.Option{
		maintenance.WithTokenSchedule(cfg.Maintenance.TokenSchedule),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
	}
	// Redis expires its own keys; only the SQL store needs sweeping.
	if dbStore != nil {
		opts = append(opts, maintenance.WithCacheStore(dbStore))
	}
	return maintenance.NewCleaner(tokens, audit, opts...)
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.SetBudget(probeTimeout + time.Second)
	health.RegisterReadiness(checks.Database(stack.DB, probeTimeout))

	var pinger checks.RedisPinger
	if stack.Redis != nil {
		pinger = stack.Redis
	}
	health.RegisterReadiness(checks.Redis(pinger, cfg.Cache.Redis.Enabled, probeTimeout))

	if cfg.Maintenance.Enabled {
		health.RegisterLiveness(checks.Maintenance(0))
	}
}

func newMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; email bodies are logged at debug level only")
		return &logMailer{log: log.Named("mail")}, nil
	}
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	return mailer, nil
}

// logMailer stands in for SMTP during local runs. Bodies carry live verification tokens, so
// they are only written at debug level.
type logMailer struct {
	log *zap.Logger
}

func (m *logMailer) Send(_ context.Context, msg mail.Message) error {
	m.log.Info("email not delivered",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	m.log.Debug("undelivered email body",
		zap.Strings("to", msg.To),
		zap.String("body", msg.Body),
	)
	return nil
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	dbCfg.Log = log
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log.Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

// Shutdown stops background jobs and releases connections. It is safe on a partially built stack.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		s.Cleaner = nil
	}

	var err error
	if s.Redis != nil {
		err = multierr.Append(err, s.Redis.Close())
		s.Redis = nil
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
		s.DB = nil
	}
	if err != nil {
		log.Warn("shutdown cleanup failed", zap.Error(err))
	}
}
