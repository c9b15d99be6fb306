package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// store is the synchronized core of the cache: a map[K]*node for lookups,
// an intrusive doubly linked list for recency order (head=MRU, tail=LRU),
// and the TTL index. The facade and the background sweeper both operate
// on it; the sweeper holds it only through a weak pointer.
type store[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.RWMutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	size int         // number of resident entries
	cap  int         // entry capacity (0 = unbounded)
	ttl  ttlIndex[K]

	// Immutable after construction.
	clock   Clock
	metrics Metrics
	onEvict func(k K, v V, reason EvictReason)

	// ---- lock-free counters backing Stats ----
	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64 // capacity evictions
	expired atomic.Int64 // lazy TTL expirations on read
	swept   atomic.Int64 // background sweep removals
}

// newStore builds a store from already validated Options.
func newStore[K comparable, V any](opt Options[K, V]) *store[K, V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &store[K, V]{
		m:       make(map[K]*node[K, V], opt.Capacity),
		cap:     opt.Capacity,
		ttl:     newTTLIndex[K](),
		clock:   opt.Clock,
		metrics: opt.Metrics,
		onEvict: opt.OnEvict,
	}
}

// get returns the value for k and promotes the entry to MRU.
// An entry whose deadline is strictly in the past is removed here and
// reported as a miss; its value is gone for good.
func (s *store[K, V]) get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.metrics.Miss()
		var zero V
		return zero, false
	}
	if s.ttl.expired(k, s.now()) {
		s.evictNode(n, EvictTTL)
		s.misses.Add(1)
		s.metrics.Miss()
		var zero V
		return zero, false
	}

	s.moveToFront(n)
	s.hits.Add(1)
	s.metrics.Hit()
	return n.val, true
}

// set inserts or updates k→v and makes the entry MRU.
// deadline is an absolute UnixNano expiry; noDeadline clears any
// previous deadline for the key. Updating an existing key reuses its
// slot, so an overwrite never evicts another key; only a brand-new key
// at capacity displaces the current LRU entry.
func (s *store[K, V]) set(k K, v V, deadline int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline != noDeadline {
		s.ttl.set(k, deadline)
	} else {
		s.ttl.clear(k)
	}

	if n, ok := s.m[k]; ok {
		n.val = v
		s.moveToFront(n)
		s.metrics.Size(s.size)
		return
	}

	if s.cap > 0 && s.size >= s.cap {
		s.evictNode(s.tail, EvictCapacity)
	}
	n := &node[K, V]{key: k, val: v}
	s.m[k] = n
	s.insertFront(n)
	s.metrics.Size(s.size)
}

// add inserts k→v only if k is absent, making it MRU.
// Returns false (and changes nothing, the deadline included) when the
// key already exists.
func (s *store[K, V]) add(k K, v V, deadline int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[k]; exists {
		return false
	}
	if deadline != noDeadline {
		s.ttl.set(k, deadline)
	}
	if s.cap > 0 && s.size >= s.cap {
		s.evictNode(s.tail, EvictCapacity)
	}
	n := &node[K, V]{key: k, val: v}
	s.m[k] = n
	s.insertFront(n)
	s.metrics.Size(s.size)
	return true
}

// remove deletes k from both the store and the TTL index.
// Returns true if the entry was resident.
func (s *store[K, V]) remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ttl.clear(k)
	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.removeNode(n)
	delete(s.m, k)
	s.metrics.Size(s.size)
	// Note: explicit removal is not counted as an eviction in metrics.
	return true
}

// length returns the number of resident entries, expired-but-unswept
// entries included.
func (s *store[K, V]) length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// snapshot copies the resident entries in recency order, least recently
// used first. Callers iterate the copy without holding the lock.
func (s *store[K, V]) snapshot() []kv[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]kv[K, V], 0, s.size)
	for n := s.tail; n != nil; n = n.prev {
		out = append(out, kv[K, V]{key: n.key, val: n.val})
	}
	return out
}

// kv is a snapshot element used by iteration.
type kv[K comparable, V any] struct {
	key K
	val V
}

// sweep removes every entry whose deadline is at or before the current
// time and returns how many were removed. It walks the sorted deadline
// view in ascending order and stops at the first deadline still in the
// future; records can outlive their keys between sorts, so the map is
// authoritative and stale records are dropped without effect.
func (s *store[K, V]) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.ttl.sortIfDirty()

	removed := 0
	recs := s.ttl.sorted
	i := 0
	for ; i < len(recs); i++ {
		rec := recs[i]
		if rec.deadline > now {
			break
		}
		if dl, ok := s.ttl.deadlines[rec.key]; !ok || dl != rec.deadline {
			continue
		}
		if n := s.m[rec.key]; n != nil {
			s.evictNode(n, EvictSweep)
			removed++
		}
	}
	s.ttl.sorted = recs[i:]

	if removed > 0 {
		s.metrics.Size(s.size)
	}
	return removed
}

// -------------------- internals (mu held) --------------------

func (s *store[K, V]) now() int64 {
	if s.clock != nil {
		return s.clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront inserts n at MRU in O(1).
func (s *store[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.size++
}

// moveToFront promotes n to MRU in O(1).
func (s *store[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode unlinks n from the list and updates counters in O(1).
func (s *store[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.size--
}

// evictNode removes the node and its deadline, updates counters and
// metrics, and calls OnEvict.
func (s *store[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.removeNode(n)
	delete(s.m, n.key)
	s.ttl.clear(n.key)

	switch reason {
	case EvictCapacity:
		s.evicted.Add(1)
	case EvictTTL:
		s.expired.Add(1)
	case EvictSweep:
		s.swept.Add(1)
	}
	s.metrics.Evict(reason)
	if cb := s.onEvict; cb != nil {
		// Note: callbacks run under the lock; keep them lightweight.
		cb(n.key, n.val, reason)
	}
}
