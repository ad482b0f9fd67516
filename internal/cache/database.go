package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
)

var errNilDatabaseStore = errors.New("cache: nil database store")

// DatabaseStore counts hits in the rate_counters table for deployments without Redis.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errNilDatabaseStore
	}
	if window <= 0 {
		window = time.Minute
	}
	now := s.now()

	var counter models.RateCounter
	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		// Seed an empty window first so racing first hits converge on one row instead of
		// colliding on the primary key.
		seed := models.RateCounter{Key: key, WindowEnds: now.Add(window)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&counter, "key = ?", key).Error; err != nil {
			return err
		}

		if counter.Open(now) {
			counter.Hits++
		} else {
			counter.Hits, counter.WindowEnds = 1, now.Add(window)
		}
		return tx.Model(&counter).Updates(map[string]any{
			"hits":        counter.Hits,
			"window_ends": counter.WindowEnds,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return counter.Hits, counter.WindowEnds.Sub(now), nil
}

func (s *DatabaseStore) Reset(ctx context.Context, key string) error {
	if s == nil {
		return errNilDatabaseStore
	}
	return s.db.WithContext(ensureContext(ctx)).Delete(&models.RateCounter{}, "key = ?", key).Error
}

// PurgeExpired drops counters whose window closed before the given instant.
func (s *DatabaseStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if s == nil {
		return 0, errNilDatabaseStore
	}
	res := s.db.WithContext(ensureContext(ctx)).Where("window_ends < ?", before).Delete(&models.RateCounter{})
	return res.RowsAffected, res.Error
}
