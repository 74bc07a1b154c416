// Package cache stores canonical results and downloaded index data between
// runs.
//
// # Backends
//
//   - [FileCache]: sha256-sharded JSON entries under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP service and for
//     batch workers on several machines
//   - [NullCache]: stores nothing, used when caching is disabled
//
// # Keys
//
// A [Keyer] derives keys from content hashes and every option that changes
// the result, so a cached entry is only reused for an identical request:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ResultKey(cache.Hash(data), cache.ResultKeyOpts{Format: "mtx", Ordering: "lexicographic"})
//
// [ScopedKeyer] prefixes every key, which keeps separate corpora or tenants
// apart in a shared backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored data and whether the key was present and fresh.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLResult is the lifetime of a canonical result. The key already pins the
// input content and options, so entries only expire to bound disk use.
const TTLResult = 30 * 24 * time.Hour
