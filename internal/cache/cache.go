// Package cache provides a small TTL cache used for identity lookups, chat
// context and dashboard statistics. Values tolerate staleness; the cache is
// never the source of truth.
package cache

import (
	"context"
	"time"
)

// Store is a read-through TTL cache. Get reports a miss, not an error, when
// the key is absent or expired.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
