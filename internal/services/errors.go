package services

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
)

var (
	// ErrDuplicateEmail indicates a user with the same (case-insensitive) email exists.
	ErrDuplicateEmail = apperrors.New("DUPLICATE_EMAIL", "An account with this email already exists", http.StatusConflict)
	// ErrWeakPassword indicates the password failed the strength policy.
	ErrWeakPassword = apperrors.New("WEAK_PASSWORD", "Password does not meet the strength requirements", http.StatusBadRequest)
	// ErrTokenNotFound covers unknown, superseded and already consumed verification tokens.
	ErrTokenNotFound = apperrors.New("TOKEN_NOT_FOUND", "Verification token is invalid or has already been used", http.StatusBadRequest)
	// ErrTokenExpired indicates the verification token outlived its expiry.
	ErrTokenExpired = apperrors.New("TOKEN_EXPIRED", "Verification token has expired", http.StatusBadRequest)
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrAlreadyVerified is returned when resending to a verified address.
	ErrAlreadyVerified = apperrors.New("ALREADY_VERIFIED", "Email address is already verified", http.StatusConflict)
	// ErrEmailNotVerified blocks logins until the address is confirmed.
	ErrEmailNotVerified = apperrors.New("EMAIL_NOT_VERIFIED", "Email address has not been verified", http.StatusForbidden)
	// ErrAccountNotFound indicates the caller's account no longer exists.
	ErrAccountNotFound = apperrors.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)
	// ErrOrderNotFound is returned for missing orders and orders owned by another account.
	ErrOrderNotFound = apperrors.New("ORDER_NOT_FOUND", "Order not found", http.StatusNotFound)
	// ErrInvalidStatusTransition rejects order status changes outside the workflow.
	ErrInvalidStatusTransition = apperrors.New("INVALID_STATUS_TRANSITION", "Order status transition is not allowed", http.StatusConflict)

	// ErrEmailDispatch wraps mail transport failures. It is never fatal to the calling operation.
	ErrEmailDispatch = errors.New("email dispatch failed")
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

var uniqueViolationMarkers = []string{"unique constraint", "duplicate key", "duplicate entry"}

// isUniqueConstraintError reports a uniqueness violation from any supported driver. Messages are
// matched last for errors gorm's translator leaves untouched.
func isUniqueConstraintError(err error) bool {
	var (
		pgErr *pgconn.PgError
		myErr *mysql.MySQLError
	)
	switch {
	case err == nil:
		return false
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	case errors.As(err, &pgErr):
		return pgErr.Code == pgUniqueViolation
	case errors.As(err, &myErr):
		return myErr.Number == mysqlDuplicateEntry
	}

	msg := strings.ToLower(err.Error())
	return slices.ContainsFunc(uniqueViolationMarkers, func(marker string) bool {
		return strings.Contains(msg, marker)
	})
}
