package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/api"
	"github.com/rbmarketing1011/restaunax-backend/internal/app"
	iauth "github.com/rbmarketing1011/restaunax-backend/internal/auth"
	sharedtestutil "github.com/rbmarketing1011/restaunax-backend/internal/database/testutil"
	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/mail"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

const testJWTSecret = "test-suite-super-secret-key-32-bytes!!"

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	JWT       *iauth.JWTService
	Config    *app.Config
	Mailer    *mail.Recorder
	RateStore *middleware.MemoryRateStore
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(cfg *app.Config)

// DefaultConfig returns the configuration used by NewEnv before options apply.
func DefaultConfig() *app.Config {
	return &app.Config{
		Server: app.ServerConfig{Port: 8000},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: testJWTSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Verification: app.VerificationSettings{
				TTL:     24 * time.Hour,
				BaseURL: "http://localhost:3000/verify-email",
			},
			RateLimits: app.RateLimitSettings{
				Global:         app.RateLimitWindow{Limit: 1000, Window: time.Minute},
				Register:       app.RateLimitWindow{Limit: 100, Window: time.Hour},
				Login:          app.RateLimitWindow{Limit: 100, Window: time.Minute},
				Resend:         app.RateLimitWindow{Limit: 100, Window: time.Minute},
				ResendPerEmail: app.RateLimitWindow{Limit: 100, Window: time.Minute},
			},
			RequireVerifiedEmail: true,
		},
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	rateStore := middleware.NewMemoryRateStore()
	t.Cleanup(rateStore.Close)

	mon, err := monitoring.NewModule(monitoring.WithoutRuntimeCollectors())
	require.NoError(t, err)

	mailer := mail.NewRecorder()
	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	resend := cfg.Auth.RateLimits.ResendPerEmail
	verifyOpts := append(cfg.Auth.VerificationOptions(),
		services.WithVerificationAudit(auditSvc),
		services.WithResendLimiter(middleware.NewEmailRateLimiter(rateStore, resend.Limit, resend.Window)),
	)
	verifier, err := services.NewEmailVerificationService(db, mailer, verifyOpts...)
	require.NoError(t, err)

	policy := cfg.Auth.PasswordPolicy()
	registration, err := services.NewRegistrationService(db, verifier, auditSvc, services.WithPasswordPolicy(policy))
	require.NoError(t, err)
	authSvc, err := services.NewAuthService(db, jwtSvc, auditSvc, services.WithRequireVerifiedEmail(cfg.Auth.RequireVerifiedEmail))
	require.NoError(t, err)
	users, err := services.NewUserService(db, verifier, auditSvc, services.WithUserPasswordPolicy(policy))
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, auditSvc)
	require.NoError(t, err)
	orders, err := services.NewOrderService(db, auditSvc)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:       cfg,
		JWT:          jwtSvc,
		RateStore:    rateStore,
		Monitoring:   mon,
		Registration: registration,
		Verification: verifier,
		Auth:         authSvc,
		Users:        users,
		Accounts:     accounts,
		Orders:       orders,
		Audit:        auditSvc,
	})
	require.NoError(t, err)

	return &Env{
		T:         t,
		DB:        db,
		Router:    router,
		JWT:       jwtSvc,
		Config:    cfg,
		Mailer:    mailer,
		RateStore: rateStore,
	}
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"email_verified"`
	AccountID     *string `json:"account_id"`
}

// AccountPayload captures the account fields returned from auth endpoints.
type AccountPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// SessionPayload mirrors the {user, account} body of register and me.
type SessionPayload struct {
	User    UserPayload    `json:"user"`
	Account AccountPayload `json:"account"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresIn int64          `json:"expires_in"`
	User      UserPayload    `json:"user"`
	Account   AccountPayload `json:"account"`
}

// Register signs up through the API and returns the created pair.
func (e *Env) Register(name, email, password string) SessionPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var payload SessionPayload
	DecodeInto(e.T, resp.Data, &payload)
	return payload
}

// LastVerificationToken extracts the token from the most recent email sent to address.
func (e *Env) LastVerificationToken(address string) string {
	e.T.Helper()

	messages := e.Mailer.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if len(msg.To) == 0 || msg.To[0] != address {
			continue
		}
		match := tokenPattern.FindStringSubmatch(msg.Body)
		require.Len(e.T, match, 2, "no token in message body: %s", msg.Body)
		return match[1]
	}
	e.T.Fatalf("no verification email sent to %s", address)
	return ""
}

// Verify consumes the latest verification token sent to address.
func (e *Env) Verify(address string) {
	e.T.Helper()

	w := e.Request(http.MethodGet, "/api/auth/verify-email?token="+e.LastVerificationToken(address), nil, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
}

// Login authenticates and returns the issued session.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	require.Greater(e.T, result.ExpiresIn, int64(0))
	return result
}

// SignUp registers, verifies and logs in a user, returning the login result.
func (e *Env) SignUp(name, email, password string) LoginResult {
	e.T.Helper()

	e.Register(name, email, password)
	e.Verify(email)
	return e.Login(email, password)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success  bool                `json:"success"`
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorInfo `json:"error"`
	Meta     *response.Meta      `json:"meta"`
	Warnings []string            `json:"warnings"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// RequireError asserts the recorder holds an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error, w.Body.String())
	require.Equal(t, code, resp.Error.Code, w.Body.String())
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
