package cache

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the background sweep period applied when
// Options.SweepInterval is zero.
const DefaultSweepInterval = 5 * time.Second

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity — removed as least recently used to admit a new key.
	EvictCapacity EvictReason = iota
	// EvictTTL — expired by TTL, detected lazily on read.
	EvictTTL
	// EvictSweep — expired by TTL, reclaimed by the background sweep.
	EvictSweep
)

// String returns a short stable label for the reason, usable as a metric
// dimension.
func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictTTL:
		return "ttl"
	case EvictSweep:
		return "sweep"
	default:
		return "other"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. The zero value yields an
// unbounded cache with no TTLs; defaults are applied in New():
//   - SweepInterval == 0 => DefaultSweepInterval
//   - nil Metrics        => NoopMetrics
//   - nil Clock          => time.Now
//   - nil Logger         => discard
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit; when a new key would exceed it,
	// the least recently used entry is evicted first. Zero disables the
	// limit. Negative values are rejected by New with ErrInvalidCapacity.
	Capacity int

	// SweepInterval is the period of the background expiry sweep.
	// Zero selects DefaultSweepInterval; negative values are rejected by
	// New with ErrInvalidInterval.
	SweepInterval time.Duration

	// DefaultTTL applies to Add/Set when no per-key TTL is given
	// (0 = entries written by Add/Set do not expire).
	DefaultTTL time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every eviction (capacity, lazy TTL, sweep)
	// under the cache lock; keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals.
	Metrics Metrics

	// Clock allows overriding the time source (tests).
	Clock Clock

	// Logger receives background sweep diagnostics.
	Logger *slog.Logger
}
