package cache

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/memocache/ttlru/internal/singleflight"
)

// cache is the facade over the store: it validates input, resolves TTLs
// into absolute deadlines, and owns the background sweeper's lifecycle.
// All methods are safe for concurrent use by multiple goroutines.
type cache[K comparable, V any] struct {
	store   *store[K, V]
	sweeper *sweeper[K, V]
	cleanup runtime.Cleanup
	closed  atomic.Bool

	opt Options[K, V]

	// singleflight group coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options and starts its
// background sweeper. The sweeper never pins the cache: dropping the
// last reference without Close still lets the whole structure be
// collected, and the sweeper goroutine exits on its next tick.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Capacity < 0 {
		return nil, fmt.Errorf("capacity %d: %w", opt.Capacity, ErrInvalidCapacity)
	}
	if opt.SweepInterval < 0 {
		return nil, fmt.Errorf("sweep interval %s: %w", opt.SweepInterval, ErrInvalidInterval)
	}
	if opt.SweepInterval == 0 {
		opt.SweepInterval = DefaultSweepInterval
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	s := newStore(opt)
	c := &cache[K, V]{store: s, opt: opt}

	c.sweeper = newSweeper(s, opt.SweepInterval, opt.Logger)
	go c.sweeper.run()

	// If the caller forgets Close, stop the sweeper as soon as the cache
	// is collected. The cleanup must not reference c, only the sweeper.
	c.cleanup = runtime.AddCleanup(c, func(sw *sweeper[K, V]) { sw.stop() }, c.sweeper)
	return c, nil
}

// MustNew is New that panics on invalid Options.
// Intended for package-level construction with constant configuration.
func MustNew[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c, err := New(opt)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

// Add inserts k→v only if absent, using DefaultTTL if set.
// Returns false if the key already exists (no update is performed).
func (c *cache[K, V]) Add(k K, v V) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	if isNilValue(v) {
		return false, ErrNilValue
	}
	return c.store.add(k, v, c.defaultDeadline()), nil
}

// Set inserts or updates k→v and makes the entry most recently used.
// It uses DefaultTTL if set; otherwise any previous per-key TTL is
// cleared, so the overwritten entry no longer expires.
func (c *cache[K, V]) Set(k K, v V) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if isNilValue(v) {
		return ErrNilValue
	}
	c.store.set(k, v, c.defaultDeadline())
	return nil
}

// SetWithTTL inserts or updates k→v with a per-key TTL relative to now.
// ttl must be >= 0; a zero ttl yields an entry that is already due, so a
// later read misses and the next sweep removes it.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if isNilValue(v) {
		return ErrNilValue
	}
	if ttl < 0 {
		return fmt.Errorf("ttl %s: %w", ttl, ErrNegativeTTL)
	}
	c.store.set(k, v, c.deadline(ttl))
	return nil
}

// Get returns the value for k and a presence flag.
// On hit, the entry becomes most recently used. An expired entry is
// removed on the spot and reported as a miss.
func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.store.get(k)
}

// Remove deletes k if present and returns true on success.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.store.remove(k)
}

// Len returns the number of resident entries. Entries past their
// deadline but not yet swept are counted.
func (c *cache[K, V]) Len() int {
	return c.store.length()
}

// All returns an iterator over the entries in recency order, least
// recently used first. Each range observes its own snapshot taken when
// iteration starts, so concurrent cache operations do not disturb an
// in-progress loop and the sequence can be ranged more than once.
func (c *cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if c.closed.Load() {
			return
		}
		for _, e := range c.store.snapshot() {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

// Stats returns a point-in-time copy of the operation counters.
func (c *cache[K, V]) Stats() Stats {
	s := c.store
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Evicted: s.evicted.Load(),
		Expired: s.expired.Load(),
		Swept:   s.swept.Load(),
		Entries: s.length(),
	}
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load per key
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		// A nil loaded value is a real error; a closed cache just skips
		// the write and hands the loaded value through.
		if err := c.Set(k, v); err != nil && !errors.Is(err, ErrClosed) {
			return v, err
		}
		return v, nil
	})
}

// Close stops the background sweeper and marks the cache closed.
// Subsequent writes return ErrClosed, reads miss. Safe to call twice.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	c.sweeper.stop()
	c.cleanup.Stop()
	return nil
}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Hits    int64 // reads that returned a live value
	Misses  int64 // reads of absent or expired keys
	Evicted int64 // entries displaced by the capacity limit
	Expired int64 // entries removed by lazy expiry on read
	Swept   int64 // entries removed by the background sweep
	Entries int   // resident entries, not-yet-swept ones included
}

// ---- helpers ----

// defaultDeadline returns an absolute deadline based on DefaultTTL,
// or noDeadline when no default is configured.
func (c *cache[K, V]) defaultDeadline() int64 {
	if c.opt.DefaultTTL <= 0 {
		return noDeadline
	}
	return c.deadline(c.opt.DefaultTTL)
}

// deadline converts a relative non-negative TTL into an absolute
// UnixNano deadline. ttl == 0 maps to "due now", not "no expiry".
func (c *cache[K, V]) deadline(ttl time.Duration) int64 {
	return c.store.now() + int64(ttl)
}

// isNilValue reports whether v is nil: the untyped interface nil or a
// typed nil pointer, map, slice, func, chan, or unsafe pointer.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
