package services

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/pkg/crypto"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
	"github.com/rbmarketing1011/restaunax-backend/pkg/mail"
)

const (
	defaultVerificationExpiry = 24 * time.Hour
	// 32 bytes gives 256 bits of entropy, rendered as 64 hex characters.
	verificationTokenBytes = 32
)

// ResendLimiter is consulted before a resend touches storage. Implementations return an error
// (typically apperrors.ErrRateLimit) to reject the request. ResetResend runs after a
// successful verification.
type ResendLimiter interface {
	AllowResend(ctx context.Context, email string) error
	ResetResend(ctx context.Context, email string) error
}

// IssuedToken describes a freshly issued verification token. DispatchErr is set when the token
// was stored but the email could not be delivered.
type IssuedToken struct {
	Token       string
	Link        string
	ExpiresAt   time.Time
	DispatchErr error
}

// VerificationOption customises the EmailVerificationService.
type VerificationOption func(*EmailVerificationService)

// WithVerificationBaseURL sets the base URL used in verification links.
func WithVerificationBaseURL(url string) VerificationOption {
	return func(s *EmailVerificationService) {
		s.baseURL = strings.TrimSpace(url)
	}
}

// WithVerificationExpiry overrides the token lifetime.
func WithVerificationExpiry(d time.Duration) VerificationOption {
	return func(s *EmailVerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *EmailVerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithResendLimiter installs the rate limit checkpoint used by Resend.
func WithResendLimiter(limiter ResendLimiter) VerificationOption {
	return func(s *EmailVerificationService) {
		s.limiter = limiter
	}
}

// WithVerificationAudit records consume and resend events.
func WithVerificationAudit(audit *AuditService) VerificationOption {
	return func(s *EmailVerificationService) {
		s.audit = audit
	}
}

// EmailVerificationService issues, consumes and resends single-use email verification tokens.
type EmailVerificationService struct {
	db      *gorm.DB
	mailer  mail.Mailer
	limiter ResendLimiter
	audit   *AuditService
	baseURL string
	expiry  time.Duration
	now     func() time.Time
}

// NewEmailVerificationService constructs a verification service with the provided dependencies.
func NewEmailVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*EmailVerificationService, error) {
	if db == nil {
		return nil, errors.New("email verification service: db is required")
	}

	service := &EmailVerificationService{
		db:     db,
		mailer: mailer,
		expiry: defaultVerificationExpiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueToken replaces any outstanding token for the user with a new one and emails the link.
// Storage failures are returned; mail failures are reported through IssuedToken.DispatchErr.
func (s *EmailVerificationService) IssueToken(ctx context.Context, userID, email string) (*IssuedToken, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	email = normaliseEmail(email)
	if userID == "" {
		return nil, errors.New("email verification service: user id is required")
	}
	if email == "" {
		return nil, errors.New("email verification service: email is required")
	}

	token, err := crypto.GenerateHexToken(verificationTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("email verification service: generate token: %w", err)
	}

	record := models.VerificationToken{
		UserID:    userID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.expiry),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.VerificationToken{}).Error; err != nil {
			return fmt.Errorf("delete previous tokens: %w", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		return nil
	})
	if err != nil {
		monitoring.RecordVerificationEvent("issued", auditResultFailure)
		return nil, fmt.Errorf("email verification service: %w", err)
	}
	monitoring.RecordVerificationEvent("issued", auditResultSuccess)

	issued := &IssuedToken{
		Token:     token,
		Link:      s.verificationLink(token),
		ExpiresAt: record.ExpiresAt,
	}
	issued.DispatchErr = s.dispatch(ctx, email, issued)
	return issued, nil
}

// ConsumeToken marks the token owner as verified and deletes the token in one transaction.
func (s *EmailVerificationService) ConsumeToken(ctx context.Context, token string) (*models.User, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenNotFound
	}

	var record models.VerificationToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(token)).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		monitoring.RecordVerificationEvent("consumed", "not_found")
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("email verification service: find token: %w", err)
	}

	if record.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Delete(&models.VerificationToken{}, "id = ?", record.ID).Error; err != nil {
			logger.WithModule("verification").Warn("failed to delete expired token",
				zap.String("user_id", record.UserID),
				zap.Error(err),
			)
		}
		monitoring.RecordVerificationEvent("consumed", "expired")
		return nil, ErrTokenExpired
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("id = ?", record.ID).Delete(&models.VerificationToken{})
		if deleted.Error != nil {
			return fmt.Errorf("delete token: %w", deleted.Error)
		}
		if deleted.RowsAffected != 1 {
			// A concurrent consume already removed the row.
			return ErrTokenNotFound
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", record.UserID).
			Update("email_verified", true).Error; err != nil {
			return fmt.Errorf("mark user verified: %w", err)
		}

		if err := tx.Take(&user, "id = ?", record.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("reload user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrUserNotFound) {
			monitoring.RecordVerificationEvent("consumed", "not_found")
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("email verification service: consume token: %w", err)
	}

	monitoring.RecordVerificationEvent("consumed", auditResultSuccess)
	if s.limiter != nil {
		if err := s.limiter.ResetResend(ctx, user.Email); err != nil {
			logger.WithModule("verification").Warn("failed to reset resend limit",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(user.ID),
		AccountID: user.AccountID,
		Email:     user.Email,
		Action:    AuditActionVerifyEmail,
		Result:    auditResultSuccess,
	})
	return &user, nil
}

// Resend issues a new token for an unverified user. The rate limit checkpoint runs before any
// lookup, so rejected requests have no side effects.
func (s *EmailVerificationService) Resend(ctx context.Context, email string, meta RequestMeta) (*IssuedToken, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	if s.limiter != nil {
		if err := s.limiter.AllowResend(ctx, email); err != nil {
			monitoring.RecordVerificationEvent("resent", "rate_limited")
			return nil, err
		}
	}

	if email == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		monitoring.RecordVerificationEvent("resent", "not_found")
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("email verification service: find user: %w", err)
	}
	if user.EmailVerified {
		monitoring.RecordVerificationEvent("resent", "already_verified")
		return nil, ErrAlreadyVerified
	}

	issued, err := s.IssueToken(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(user.ID),
		AccountID: user.AccountID,
		Email:     user.Email,
		Action:    AuditActionResend,
		Result:    auditResultSuccess,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return issued, nil
}

// PurgeExpired removes tokens that expired before the supplied instant.
func (s *EmailVerificationService) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at < ?", before).
		Delete(&models.VerificationToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("email verification service: purge expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *EmailVerificationService) dispatch(ctx context.Context, email string, issued *IssuedToken) error {
	if s.mailer == nil {
		monitoring.RecordEmailDispatch("disabled")
		return nil
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{email},
		Subject: "Verify your Restaunax email address",
		Body:    s.verificationBody(issued),
		HTML:    verificationHTML(issued),
	})
	switch {
	case err == nil:
		monitoring.RecordEmailDispatch("sent")
		return nil
	case errors.Is(err, mail.ErrSMTPDisabled):
		monitoring.RecordEmailDispatch("disabled")
		logger.WithModule("verification").Debug("smtp disabled, verification email not sent",
			zap.String("email", email),
		)
		return nil
	default:
		monitoring.RecordEmailDispatch("failed")
		logger.WithModule("verification").Warn("failed to send verification email",
			zap.String("email", email),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}
}

func (s *EmailVerificationService) verificationLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	parsed, err := url.Parse(s.baseURL)
	if err != nil {
		return fmt.Sprintf("%s?token=%s", s.baseURL, url.QueryEscape(token))
	}
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

var verificationTemplate = template.Must(template.New("verify").Parse(
	`<p>Welcome to Restaunax!</p>` +
		`<p><a href="{{.Link}}">Confirm your email address</a></p>` +
		`<p>The link expires at {{.Expires}}. If you did not create an account, you can ignore this message.</p>`,
))

// verificationHTML returns an empty string when rendering fails so the plain-text part still goes out.
func verificationHTML(issued *IssuedToken) string {
	var buf strings.Builder
	err := verificationTemplate.Execute(&buf, struct{ Link, Expires string }{
		Link:    issued.Link,
		Expires: issued.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return ""
	}
	return buf.String()
}

func (s *EmailVerificationService) verificationBody(issued *IssuedToken) string {
	return fmt.Sprintf("Welcome to Restaunax!\n\nPlease confirm your email address by visiting the link below:\n%s\n\nThe link expires at %s.\nIf you did not create an account, you can ignore this message.\n",
		issued.Link,
		issued.ExpiresAt.UTC().Format(time.RFC1123),
	)
}
