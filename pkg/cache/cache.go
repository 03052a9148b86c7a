// Package cache memoizes per-archive work keyed by content hash.
//
// Discovery probes every archive it finds: open it, read its metadata file,
// list nested archives. Libraries are commonly embedded by many packages,
// so the same bytes are probed repeatedly within a run and across runs.
// A [Cache] stores the probe outcome under the archive's content [Hash].
//
// Implementations:
//   - [NullCache]: stores nothing; used when caching is switched off
//   - [MemoryCache]: process-local map, safe for concurrent use (the
//     per-run default)
//   - [FileCache]: one file per entry under a directory, survives restarts
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}
