package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rbmarketing1011/restaunax-backend/internal/cache"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	"github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

// MemoryRateStore provides process-local rate limiting. It is concurrency-safe.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	tick  *time.Ticker
	done  chan struct{}
	once  sync.Once
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store. Close stops its cleanup loop.
func NewMemoryRateStore() *MemoryRateStore {
	store := &MemoryRateStore{
		data:  make(map[string]*memoryCounter),
		tick:  time.NewTicker(time.Minute),
		done:  make(chan struct{}),
		clock: time.Now,
	}

	go store.cleanupLoop()
	return store
}

// Close stops the background cleanup.
func (s *MemoryRateStore) Close() {
	s.once.Do(func() {
		s.tick.Stop()
		close(s.done)
	})
}

func (s *MemoryRateStore) cleanupLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.tick.C:
			now := s.clock()
			s.mu.Lock()
			for key, counter := range s.data {
				if !now.Before(counter.windowEnd) {
					delete(s.data, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Increment bumps the counter for key and reports the time left in its window.
func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}

	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

func (s *MemoryRateStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// storeRateStore implements RateStore on top of a shared cache store (Redis or SQL).
type storeRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a cache store in a RateStore implementation.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}

func (s *storeRateStore) Reset(ctx context.Context, key string) error {
	return s.store.Reset(ctx, key)
}

// EmailRateLimiter caps verification resends per email address.
type EmailRateLimiter struct {
	store  RateStore
	limit  int
	window time.Duration
}

// NewEmailRateLimiter builds a limiter allowing limit resends per address in each window.
func NewEmailRateLimiter(store RateStore, limit int, window time.Duration) *EmailRateLimiter {
	return &EmailRateLimiter{store: store, limit: limit, window: window}
}

// AllowResend returns errors.ErrRateLimit once the address exhausted its window.
func (l *EmailRateLimiter) AllowResend(ctx context.Context, email string) error {
	if l == nil || l.store == nil || l.limit <= 0 {
		return nil
	}
	count, _, err := l.store.Increment(ctx, resendKey(email), l.window)
	if err != nil {
		// Fails open, as RateLimit does.
		logger.WithModule("ratelimit").Warn("rate store unavailable",
			zap.String("scope", "resend_email"),
			zap.Error(err),
		)
		return nil
	}
	if count > l.limit {
		monitoring.RecordRateLimitRejection("resend_email")
		return errors.ErrRateLimit
	}
	return nil
}

// ResetResend clears the address's window once it has been verified.
func (l *EmailRateLimiter) ResetResend(ctx context.Context, email string) error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Reset(ctx, resendKey(email))
}

func resendKey(email string) string {
	return "ratelimit:resend_email:" + strings.ToLower(strings.TrimSpace(email))
}
