// Package cache provides a small in-process TTL cache used to reuse
// synthesized speech for repeated text.
package cache

import (
	"context"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value and reports whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value. A non-positive ttl uses the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes an exact key, or every key with the prefix before a trailing "*".
	Invalidate(ctx context.Context, pattern string) error
}
