// Package cache provides a generic, bounded in-memory cache with per-entry
// TTL expiration, LRU eviction, a self-stopping background sweep, optional
// singleflight loading, and lightweight metrics hooks.
//
// Design
//
//   - Storage: one map[K]*node for lookups plus an intrusive MRU↔LRU doubly
//     linked list for recency order. Reads promote the entry to MRU; when a
//     new key would exceed Capacity, the LRU entry is evicted first.
//     Overwriting an existing key reuses its slot and never evicts others.
//
//   - TTL index: expiry deadlines (UnixNano) live next to the store, one per
//     key, with a by-deadline sorted view that is rebuilt lazily. Writes only
//     mark the view dirty, so Set/Add stay O(1); the background sweep pays
//     for sorting when something actually changed.
//
//   - Expiration: lazy on read — a read past the deadline removes the entry
//     and reports a miss — plus a periodic background sweep (SweepInterval,
//     5s by default) that reclaims entries nobody reads. A read at the exact
//     deadline still returns the value; the sweep takes it from there.
//
//   - Sweeper lifecycle: the sweep goroutine references the cache state only
//     weakly. A cache dropped without Close is collected normally, and the
//     goroutine exits on its next tick; Close stops it deterministically.
//     Panics out of user callbacks during a sweep are logged (Options.Logger)
//     and confined to that pass.
//
//   - Iteration: All() yields entries LRU → MRU over a snapshot taken per
//     range call, so loops are isolated from concurrent mutation and the
//     sequence is reusable.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export.
//     Stats() returns plain counters when a registry is overkill.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every eviction
//     (reason is one of EvictCapacity, EvictTTL, EvictSweep).
//
// Basic usage
//
//	// Create an LRU cache with capacity for 10k entries.
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    // only invalid Options end up here
//	}
//	_ = c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With TTL
//
//	c := cache.MustNew[string, string](cache.Options[string, string]{Capacity: 1024})
//	_ = c.SetWithTTL("tmp", "v", 200*time.Millisecond)
//	time.Sleep(300 * time.Millisecond)
//	_, ok := c.Get("tmp") // ok == false (expired)
//
// With GetOrLoad (singleflight)
//
//	c := cache.MustNew[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Iterating in recency order
//
//	for k, v := range c.All() { // LRU first, MRU last
//	    fmt.Println(k, v)
//	}
//
// Exporting metrics (example Prometheus adapter)
//
//	m := prom.New(nil, "ttlru", "demo", nil) // implements Metrics
//	c := cache.MustNew[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Typical operation cost
// is O(1) expected time: one map access and a constant amount of pointer
// fixes. The sweep costs O(k) per pass for k removed entries, plus
// O(n log n) to re-sort the deadline view when writes dirtied it.
package cache
