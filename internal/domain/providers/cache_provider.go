package providers

import (
	"context"
	"time"
)

// CacheProvider defines the interface for short-lived counters and flags
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Increment atomically increments a counter, starting its ttl on creation
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}
