// Package cache memoizes answered questions so a repeated question skips
// generation and execution. Keys bind the normalized question to the schema
// fingerprint, so a schema change makes prior entries unreachable.
package cache

import (
	"context"
	"time"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// Store is the result cache contract. Implementations are best-effort: a
// failed Put or Invalidate is logged, never surfaced, because the cache must
// not be able to fail a question.
type Store interface {
	// Get returns the entry for key, or false on a miss or expired entry.
	Get(ctx context.Context, key string) (*models.CacheEntry, bool)

	// Put stores an entry under key with the given time to live.
	Put(ctx context.Context, key string, entry models.CacheEntry, ttl time.Duration)

	// Invalidate removes a single entry.
	Invalidate(ctx context.Context, key string)

	// InvalidateAll removes every entry.
	InvalidateAll(ctx context.Context)
}

var (
	_ Store = (*MemoryCache)(nil)
	_ Store = (*RedisCache)(nil)
)
