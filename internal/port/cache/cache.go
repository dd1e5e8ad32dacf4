// Package cache defines the port for the tenant settings cache.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values under string keys. A miss is (nil, false, nil).
// Errors are advisory: callers fall back to the store and never fail a read
// because the cache is unavailable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LocalInvalidator is implemented by caches with a per-process level. It
// drops key from that level only, leaving shared levels to the replica that
// wrote them.
type LocalInvalidator interface {
	DeleteLocal(ctx context.Context, key string) error
}
