package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/pkg/crypto"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
)

// Warnings attached to a successful registration.
const (
	WarningVerificationNotIssued = "Verification email could not be prepared; request a new one with resend verification"
	WarningVerificationNotSent   = "Verification email could not be sent; request a new one with resend verification"
)

// RegisterInput describes a self-service sign up.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	AccountName string
	Meta        RequestMeta
}

// RegistrationResult is the committed user/account pair plus the outcome of token issuance.
type RegistrationResult struct {
	User         *models.User
	Account      *models.Account
	Verification *IssuedToken
	Warnings     []string
}

// RegistrationOption customises the RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithPasswordPolicy overrides the default password strength rules.
func WithPasswordPolicy(policy PasswordPolicy) RegistrationOption {
	return func(s *RegistrationService) {
		s.policy = policy
	}
}

// RegistrationService bootstraps a user together with the account it owns. It is the only
// code path that creates users or accounts.
type RegistrationService struct {
	db       *gorm.DB
	verifier *EmailVerificationService
	audit    *AuditService
	policy   PasswordPolicy
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *gorm.DB, verifier *EmailVerificationService, audit *AuditService, opts ...RegistrationOption) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}
	if verifier == nil {
		return nil, errors.New("registration service: verification service is required")
	}

	service := &RegistrationService{
		db:       db,
		verifier: verifier,
		audit:    audit,
		policy:   DefaultPasswordPolicy(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register creates the user, its account and the back reference in one transaction, then
// issues a verification token. Token or mail problems after commit become warnings.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	email := normaliseEmail(input.Email)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if err := s.policy.Validate(input.Password); err != nil {
		s.fail(ctx, email, input.Meta, "weak_password")
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("registration service: hash password: %w", err)
	}

	accountName := strings.TrimSpace(input.AccountName)
	if accountName == "" {
		accountName = fmt.Sprintf("%s's Restaurant", name)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
	}
	account := &models.Account{Name: accountName}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateEmail
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		account.OwnerID = user.ID
		if err := tx.Create(account).Error; err != nil {
			return fmt.Errorf("create account: %w", err)
		}

		if err := tx.Model(user).Update("account_id", account.ID).Error; err != nil {
			return fmt.Errorf("link account: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || isUniqueConstraintError(err) {
			s.fail(ctx, email, input.Meta, "duplicate_email")
			return nil, ErrDuplicateEmail
		}
		s.fail(ctx, email, input.Meta, "error")
		return nil, fmt.Errorf("registration service: %w", err)
	}

	user.AccountID = &account.ID
	result := &RegistrationResult{User: user, Account: account}

	issued, err := s.verifier.IssueToken(ctx, user.ID, user.Email)
	switch {
	case err != nil:
		logger.WithModule("registration").Error("failed to issue verification token",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, WarningVerificationNotIssued)
	case issued.DispatchErr != nil:
		result.Verification = issued
		result.Warnings = append(result.Warnings, WarningVerificationNotSent)
	default:
		result.Verification = issued
	}

	monitoring.RecordRegistration(auditResultSuccess)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(user.ID),
		AccountID: stringPtr(account.ID),
		Email:     email,
		Action:    AuditActionRegister,
		Result:    auditResultSuccess,
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
		Metadata:  map[string]any{"warnings": len(result.Warnings)},
	})

	return result, nil
}

func (s *RegistrationService) fail(ctx context.Context, email string, meta RequestMeta, reason string) {
	monitoring.RecordRegistration(reason)
	recordAudit(s.audit, ctx, AuditEntry{
		Email:     email,
		Action:    AuditActionRegister,
		Result:    auditResultFailure,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Metadata:  map[string]any{"reason": reason},
	})
}
