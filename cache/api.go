package cache

import (
	"context"
	"iter"
	"time"
)

// Cache is a bounded in-memory key/value cache with per-entry TTL and
// LRU eviction. All methods are safe for concurrent use by multiple
// goroutines.
//
// Typical complexity is amortized O(1) per operation: a map lookup plus
// constant-time list adjustments under one lock. Only the background
// sweep pays O(n log n), and only after writes touched the TTL index.
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present.
	// It uses the cache's DefaultTTL (if any).
	// Returns false if the key already exists (no update is performed).
	// Returns ErrNilValue for nil values and ErrClosed after Close.
	Add(k K, v V) (bool, error)

	// Set inserts or updates k→v and makes the entry most recently used.
	// It uses the cache's DefaultTTL (if any); without one, any earlier
	// per-key TTL is cleared by the overwrite.
	// Returns ErrNilValue for nil values and ErrClosed after Close.
	Set(k K, v V) error

	// Get returns the value for k and a boolean flag indicating presence.
	// On hit, the entry becomes most recently used. An entry past its
	// deadline is removed and reported as a miss.
	Get(k K) (V, bool)

	// Remove deletes k if present and returns true on success.
	Remove(k K) bool

	// Len returns the number of resident entries, counting entries past
	// their deadline that no read or sweep has removed yet.
	Len() int

	// Close stops the background sweeper and marks the cache closed.
	// Subsequent writes return ErrClosed and reads miss.
	Close() error

	// SetWithTTL inserts or updates k→v with a per-key TTL (relative
	// duration, >= 0). Zero means "due immediately": the next read
	// misses. Negative ttl returns ErrNegativeTTL and changes nothing.
	SetWithTTL(k K, v V, ttl time.Duration) error

	// GetOrLoad returns the value for k, loading it via Options.Loader on
	// miss. Concurrent loads for the same key are coalesced
	// (singleflight). If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// All returns an iterator over entries in recency order, least
	// recently used first. Every range call observes its own snapshot;
	// mutating the cache mid-loop is allowed and does not affect it.
	All() iter.Seq2[K, V]

	// Stats returns a point-in-time copy of the operation counters.
	Stats() Stats
}
