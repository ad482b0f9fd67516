package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/pkg/crypto"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
)

// UpdateProfileInput enumerates mutable profile attributes. Nil fields are left unchanged.
type UpdateProfileInput struct {
	Name  *string
	Email *string
	Meta  RequestMeta
}

// ChangePasswordInput carries the current and replacement passwords.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	Meta            RequestMeta
}

// ProfileResult is returned after a profile update. Verification is set when an email change
// triggered a new verification token.
type ProfileResult struct {
	User         *models.User
	Verification *IssuedToken
	Warnings     []string
}

// UserService manages the signed-in user's own profile.
type UserService struct {
	db       *gorm.DB
	verifier *EmailVerificationService
	audit    *AuditService
	policy   PasswordPolicy
}

// UserOption customises the UserService.
type UserOption func(*UserService)

// WithUserPasswordPolicy overrides the password rules applied by ChangePassword.
func WithUserPasswordPolicy(policy PasswordPolicy) UserOption {
	return func(s *UserService) {
		s.policy = policy
	}
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, verifier *EmailVerificationService, audit *AuditService, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	service := &UserService{
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

// GetByID retrieves a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the user's name and email. Changing the email clears the verified
// flag and issues a fresh verification token for the new address.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*ProfileResult, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		if name != user.Name {
			updates["name"] = name
		}
	}

	emailChanged := false
	if input.Email != nil {
		email := normaliseEmail(*input.Email)
		if email == "" {
			return nil, apperrors.NewBadRequest("email cannot be empty")
		}
		if email != user.Email {
			updates["email"] = email
			updates["email_verified"] = false
			emailChanged = true
		}
	}

	result := &ProfileResult{User: user}
	if len(updates) == 0 {
		return result, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if emailChanged {
			var existing int64
			if err := tx.Model(&models.User{}).
				Where("email = ? AND id <> ?", updates["email"], user.ID).
				Count(&existing).Error; err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if existing > 0 {
				return ErrDuplicateEmail
			}
			// Tokens minted for the old address must not verify the new one.
			if err := tx.Where("user_id = ?", user.ID).Delete(&models.VerificationToken{}).Error; err != nil {
				return fmt.Errorf("delete tokens: %w", err)
			}
		}
		return tx.Model(user).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || isUniqueConstraintError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}

	user, err = s.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	result.User = user

	if emailChanged && s.verifier != nil {
		issued, err := s.verifier.IssueToken(ctx, user.ID, user.Email)
		switch {
		case err != nil:
			logger.WithModule("users").Error("failed to issue verification token",
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
	}

	fields := make([]string, 0, len(updates))
	for key := range updates {
		if key != "email_verified" {
			fields = append(fields, key)
		}
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(user.ID),
		AccountID: user.AccountID,
		Email:     user.Email,
		Action:    AuditActionProfileUpdate,
		Result:    auditResultSuccess,
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
		Metadata:  map[string]any{"fields": fields},
	})

	return result, nil
}

// ChangePassword replaces the user's password after confirming the current one.
func (s *UserService) ChangePassword(ctx context.Context, id string, input ChangePasswordInput) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(user.Password, input.CurrentPassword) {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:    stringPtr(user.ID),
			AccountID: user.AccountID,
			Email:     user.Email,
			Action:    AuditActionPasswordChange,
			Result:    auditResultFailure,
			IPAddress: input.Meta.IPAddress,
			UserAgent: input.Meta.UserAgent,
			Metadata:  map[string]any{"reason": "invalid_current_password"},
		})
		return apperrors.ErrInvalidCredentials
	}
	if err := s.policy.Validate(input.NewPassword); err != nil {
		return err
	}

	hashed, err := crypto.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(user.ID),
		AccountID: user.AccountID,
		Email:     user.Email,
		Action:    AuditActionPasswordChange,
		Result:    auditResultSuccess,
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})
	return nil
}
