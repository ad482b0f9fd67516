package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/auth"
	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/pkg/crypto"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
)

// LoginInput contains the credentials submitted to the login endpoint.
type LoginInput struct {
	Email    string
	Password string
	Meta     RequestMeta
}

// LoginResult is returned to clients after a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn int64
	User      *models.User
	Account   *models.Account
}

// AuthOption customises the AuthService.
type AuthOption func(*AuthService)

// WithRequireVerifiedEmail toggles whether unverified users may sign in.
func WithRequireVerifiedEmail(required bool) AuthOption {
	return func(s *AuthService) {
		s.requireVerified = required
	}
}

// WithAuthClock injects a custom time source.
func WithAuthClock(clock func() time.Time) AuthOption {
	return func(s *AuthService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AuthService checks credentials and issues session tokens.
type AuthService struct {
	db              *gorm.DB
	jwt             *auth.JWTService
	audit           *AuditService
	requireVerified bool
	dummyHash       string
	now             func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, jwtService *auth.JWTService, audit *AuditService, opts ...AuthOption) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("auth service: jwt service is required")
	}

	// Unknown emails are compared against this hash so both paths cost one bcrypt round.
	dummy, err := crypto.HashPassword("restaunax-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("auth service: prepare dummy hash: %w", err)
	}

	service := &AuthService{
		db:              db,
		jwt:             jwtService,
		audit:           audit,
		requireVerified: true,
		dummyHash:       dummy,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Login verifies the credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" || input.Password == "" {
		s.recordFailure(ctx, email, input.Meta, nil, "missing_credentials")
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		crypto.VerifyPassword(s.dummyHash, input.Password)
		s.recordFailure(ctx, email, input.Meta, nil, "unknown_email")
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		monitoring.RecordAuthAttempt("error")
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		s.recordFailure(ctx, email, input.Meta, &user, "invalid_password")
		return nil, apperrors.ErrInvalidCredentials
	}

	if s.requireVerified && !user.EmailVerified {
		s.recordFailure(ctx, email, input.Meta, &user, "email_not_verified")
		return nil, ErrEmailNotVerified
	}

	account, err := s.loadAccount(ctx, user.AccountID)
	if err != nil {
		monitoring.RecordAuthAttempt("error")
		return nil, err
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID:    user.ID,
		AccountID: account.ID,
		Email:     user.Email,
	})
	if err != nil {
		monitoring.RecordAuthAttempt("error")
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	now := s.now()
	ip := strings.TrimSpace(input.Meta.IPAddress)
	updates := map[string]any{
		"last_login_at": now,
		"last_login_ip": ip,
	}
	if crypto.NeedsRehash(user.Password) {
		if rehashed, err := crypto.HashPassword(input.Password); err == nil {
			updates["password"] = rehashed
		}
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("auth service: record login: %w", err)
	}
	user.LastLoginAt = &now
	user.LastLoginIP = ip

	monitoring.RecordAuthAttempt(auditResultSuccess)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(user.ID),
		AccountID: stringPtr(account.ID),
		Email:     user.Email,
		Action:    AuditActionLogin,
		Result:    auditResultSuccess,
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})

	expiresIn := int64(expiresAt.Sub(now).Round(time.Second) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: expiresIn,
		User:      &user,
		Account:   account,
	}, nil
}

// CurrentUser loads the authenticated user and account referenced by a session.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, *models.Account, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("auth service: find user: %w", err)
	}

	account, err := s.loadAccount(ctx, user.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return &user, account, nil
}

func (s *AuthService) loadAccount(ctx context.Context, accountID *string) (*models.Account, error) {
	if accountID == nil || *accountID == "" {
		return nil, ErrAccountNotFound
	}
	var account models.Account
	err := s.db.WithContext(ctx).Take(&account, "id = ?", *accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find account: %w", err)
	}
	return &account, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string, meta RequestMeta, user *models.User, reason string) {
	monitoring.RecordAuthAttempt("failure")

	entry := AuditEntry{
		Email:     email,
		Action:    AuditActionLogin,
		Result:    auditResultFailure,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Metadata:  map[string]any{"reason": reason},
	}
	if user != nil {
		entry.UserID = stringPtr(user.ID)
		entry.AccountID = user.AccountID
	}
	recordAudit(s.audit, ctx, entry)
}
