package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
)

// Audit actions. Results are "success" or "failure".
const (
	AuditActionRegister       = "auth.register"
	AuditActionLogin          = "auth.login"
	AuditActionVerifyEmail    = "auth.verify_email"
	AuditActionResend         = "auth.resend_verification"
	AuditActionProfileUpdate  = "profile.update"
	AuditActionPasswordChange = "profile.password_change"
	AuditActionAccountUpdate  = "account.update"
	AuditActionAccountDelete  = "account.delete"
	AuditActionOrderCreate    = "order.create"
	AuditActionOrderStatus    = "order.status"
	AuditActionOrderDelete    = "order.delete"

	auditResultSuccess = "success"
	auditResultFailure = "failure"
)

// AuditEntry is one event to record. Blank ids are stored as NULL.
type AuditEntry struct {
	UserID    *string
	AccountID *string
	Email     string
	Action    string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditFilters narrow List. Zero values are ignored.
type AuditFilters struct {
	AccountID string
	UserID    string
	Action    string
	Result    string
	Since     *time.Time
	Until     *time.Time
}

type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService writes and reads the audit trail.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: time.Now}, nil
}

// Log stores entry. Action and Result are required.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	row := models.AuditLog{
		UserID:    trimmedPtr(entry.UserID),
		AccountID: trimmedPtr(entry.AccountID),
		Email:     normaliseEmail(entry.Email),
		Action:    strings.TrimSpace(entry.Action),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
	}
	switch {
	case row.Action == "":
		return errors.New("audit service: action is required")
	case row.Result == "":
		return errors.New("audit service: result is required")
	}
	if len(entry.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(entry.Metadata)
	}

	if err := s.db.WithContext(ensureContext(ctx)).Create(&row).Error; err != nil {
		return fmt.Errorf("audit service: insert %s: %w", row.Action, err)
	}
	return nil
}

// List returns one page of matching entries, newest first, and the total match count.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ensureContext(ctx)).
		Model(&models.AuditLog{}).
		Scopes(auditFilter(opts.Filters))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count: %w", err)
	}

	var rows []models.AuditLog
	err := query.
		Scopes(paginate(opts.Page, opts.PageSize)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list: %w", err)
	}
	return rows, total, nil
}

// CleanupOlderThan deletes entries older than retentionDays and reports how many went.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	res := s.db.WithContext(ensureContext(ctx)).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func auditFilter(f AuditFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		equal := map[string]any{}
		for column, value := range map[string]string{
			"account_id": f.AccountID,
			"user_id":    f.UserID,
			"action":     f.Action,
			"result":     f.Result,
		} {
			if value != "" {
				equal[column] = value
			}
		}
		if len(equal) > 0 {
			db = db.Where(equal)
		}
		if f.Since != nil {
			db = db.Where("created_at >= ?", *f.Since)
		}
		if f.Until != nil {
			db = db.Where("created_at <= ?", *f.Until)
		}
		return db
	}
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		return &trimmed
	}
	return nil
}

// recordAudit writes entry when audit is configured. A failed write is logged, never returned:
// the audited operation has already happened.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("audit entry dropped",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
