// Package repo implements the key-value persistence layer every pipeline
// component writes through. The Store contract mirrors the external KVS the
// service is deployed against: atomic per-key set, get and delete with an
// optional per-key expiry, and no multi-key transactions.
//
// Backends:
//   - MemoryStore: process-local, for tests and single-instance development.
//   - RedisStore:  go-redis, the production backend.
//   - SQLStore:    GORM over SQLite, for deployments without Redis.
package repo

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or has expired.
var ErrNotFound = errors.New("not found")

// NoExpiry marks a key that must never expire.
const NoExpiry time.Duration = 0

// Store is an ephemeral key-value store with per-key expiry.
//
// Set replaces the whole value atomically: a concurrent Get observes either
// the previous value or the new one, never a mixture. A ttl <= 0 stores the
// key without expiry. Implementations must be safe for concurrent use.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
