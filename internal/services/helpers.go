package services

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RequestMeta is the caller's address and user agent, stored on audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// normaliseEmail trims and lower-cases an address so uniqueness is case-insensitive.
func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalisePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return page, perPage
}

// paginate applies normalisePage as LIMIT/OFFSET.
func paginate(page, perPage int) func(*gorm.DB) *gorm.DB {
	page, perPage = normalisePage(page, perPage)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * perPage).Limit(perPage)
	}
}

func stringPtr(value string) *string {
	return &value
}
