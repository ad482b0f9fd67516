package cache

import (
	"context"
	"time"
)

// Store keeps fixed-window hit counters shared between API nodes.
type Store interface {
	// IncrementWithTTL adds a hit to key and returns the window's count and remaining lifetime.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Reset drops key so its next hit opens a fresh window.
	Reset(ctx context.Context, key string) error
}
