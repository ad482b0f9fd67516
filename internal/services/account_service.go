package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
)

// UpdateAccountInput enumerates mutable account attributes. Nil fields are left unchanged.
type UpdateAccountInput struct {
	Name     *string
	Settings map[string]any
	Meta     RequestMeta
}

// AccountService manages the restaurant account a user owns.
type AccountService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, audit *AuditService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db, audit: audit}, nil
}

// Get loads the account by identifier.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).Take(&account, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: get account: %w", err)
	}
	return &account, nil
}

// Update changes the account name and merges the supplied settings over the stored ones.
// A nil settings value removes the key.
func (s *AccountService) Update(ctx context.Context, userID, accountID string, input UpdateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	account, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}

	if input.Settings != nil {
		merged := map[string]any{}
		if len(account.Settings) > 0 {
			if err := json.Unmarshal(account.Settings, &merged); err != nil {
				return nil, fmt.Errorf("account service: decode settings: %w", err)
			}
		}
		for key, value := range input.Settings {
			if value == nil {
				delete(merged, key)
				continue
			}
			merged[key] = value
		}
		encoded, err := json.Marshal(merged)
		if err != nil {
			return nil, apperrors.NewBadRequest("settings must be a JSON object")
		}
		updates["settings"] = datatypes.JSON(encoded)
	}

	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("account service: update account: %w", err)
	}

	updated, err := s.Get(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(userID),
		AccountID: stringPtr(account.ID),
		Action:    AuditActionAccountUpdate,
		Result:    auditResultSuccess,
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})
	return updated, nil
}

// Delete removes the account together with its orders, users and their verification tokens.
// Only the account owner may delete it.
func (s *AccountService) Delete(ctx context.Context, userID, accountID string, meta RequestMeta) error {
	ctx = ensureContext(ctx)

	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if account.OwnerID != strings.TrimSpace(userID) {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:    stringPtr(userID),
			AccountID: stringPtr(account.ID),
			Action:    AuditActionAccountDelete,
			Result:    auditResultFailure,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Metadata:  map[string]any{"reason": "not_owner"},
		})
		return apperrors.ErrForbidden.WithMessage("Only the account owner can delete the account")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderIDs := tx.Model(&models.Order{}).Select("id").Where("account_id = ?", account.ID)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.Order{}).Error; err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}

		userIDs := tx.Model(&models.User{}).Select("id").Where("account_id = ?", account.ID)
		if err := tx.Where("user_id IN (?)", userIDs).Delete(&models.VerificationToken{}).Error; err != nil {
			return fmt.Errorf("delete verification tokens: %w", err)
		}
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		if err := tx.Delete(&models.Account{}, "id = ?", account.ID).Error; err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("account service: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(userID),
		AccountID: stringPtr(account.ID),
		Action:    AuditActionAccountDelete,
		Result:    auditResultSuccess,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}
