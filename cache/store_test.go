package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keysInOrder returns the resident keys LRU → MRU.
func keysInOrder[K comparable, V any](s *store[K, V]) []K {
	var keys []K
	for _, e := range s.snapshot() {
		keys = append(keys, e.key)
	}
	return keys
}

// countingMetrics records Metrics signals. Not synchronized: only for
// tests that drive the store from a single goroutine.
type countingMetrics struct {
	hits, misses int
	evicts       map[EvictReason]int
	lastSize     int
}

func (m *countingMetrics) Hit()  { m.hits++ }
func (m *countingMetrics) Miss() { m.misses++ }
func (m *countingMetrics) Evict(r EvictReason) {
	if m.evicts == nil {
		m.evicts = map[EvictReason]int{}
	}
	m.evicts[r]++
}
func (m *countingMetrics) Size(entries int) { m.lastSize = entries }

var _ Metrics = (*countingMetrics)(nil)

// Head is MRU, tail is LRU, and a read promotes to head.
func TestStore_ListOrientation(t *testing.T) {
	t.Parallel()

	s := newStore(Options[string, int]{Capacity: 8})
	s.set("a", 1, noDeadline)
	s.set("b", 2, noDeadline)
	s.set("c", 3, noDeadline)

	assert.Equal(t, "c", s.head.key)
	assert.Equal(t, "a", s.tail.key)
	assert.Equal(t, []string{"a", "b", "c"}, keysInOrder(s))

	_, ok := s.get("a")
	require.True(t, ok)
	assert.Equal(t, "a", s.head.key)
	assert.Equal(t, "b", s.tail.key)
	assert.Equal(t, []string{"b", "c", "a"}, keysInOrder(s))
	assert.Equal(t, 3, s.length())
}

// Unlinking head, tail, and middle nodes keeps the list consistent.
func TestStore_RemoveRelinks(t *testing.T) {
	t.Parallel()

	s := newStore(Options[string, int]{Capacity: 8})
	for _, k := range []string{"a", "b", "c", "d"} {
		s.set(k, 0, noDeadline)
	}

	require.True(t, s.remove("d")) // head
	assert.Equal(t, []string{"a", "b", "c"}, keysInOrder(s))
	assert.Equal(t, "c", s.head.key)

	require.True(t, s.remove("a")) // tail
	assert.Equal(t, []string{"b", "c"}, keysInOrder(s))
	assert.Equal(t, "b", s.tail.key)

	s.set("e", 0, noDeadline)
	require.True(t, s.remove("c")) // middle
	assert.Equal(t, []string{"b", "e"}, keysInOrder(s))

	require.False(t, s.remove("c"))
	assert.Equal(t, 2, s.length())
}

// At capacity a new key displaces the tail; an overwrite reuses the
// slot and displaces nothing.
func TestStore_CapacityEvictsTailOnly(t *testing.T) {
	t.Parallel()

	var evicted []string
	s := newStore(Options[string, int]{
		Capacity: 2,
		OnEvict:  func(k string, _ int, r EvictReason) { evicted = append(evicted, k+"/"+r.String()) },
	})

	s.set("a", 1, noDeadline)
	s.set("b", 2, noDeadline)
	s.set("b", 22, noDeadline) // overwrite at full capacity
	assert.Empty(t, evicted)
	assert.Equal(t, []string{"a", "b"}, keysInOrder(s))

	s.set("c", 3, noDeadline) // new key -> evict a
	assert.Equal(t, []string{"a/capacity"}, evicted)
	assert.Equal(t, []string{"b", "c"}, keysInOrder(s))

	ok := s.add("d", 4, noDeadline) // add path evicts too
	require.True(t, ok)
	assert.Equal(t, []string{"a/capacity", "b/capacity"}, evicted)
	assert.Equal(t, int64(2), s.evicted.Load())
}

// A read past the deadline removes the entry and its record for good.
func TestStore_GetExpiredRemoves(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newStore(Options[string, int]{Capacity: 8, Clock: clk})

	s.set("k", 1, clk.NowUnixNano()+int64(10*time.Millisecond))
	_, ok := s.get("k")
	require.True(t, ok, "not yet due")

	clk.add(20 * time.Millisecond)
	_, ok = s.get("k")
	require.False(t, ok)
	assert.Equal(t, 0, s.length())
	assert.Equal(t, 0, s.ttl.len(), "the deadline record must go with the entry")
	assert.Equal(t, int64(1), s.expired.Load())

	// The value is not resurrected by later reads.
	_, ok = s.get("k")
	assert.False(t, ok)
}

// An entry whose deadline equals the current instant is still readable,
// while the sweep already reclaims it. The two sides of the boundary
// are deliberately different.
func TestStore_DeadlineBoundary(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newStore(Options[string, int]{Capacity: 8, Clock: clk})

	s.set("k", 1, clk.NowUnixNano())

	v, ok := s.get("k")
	require.True(t, ok, "deadline == now must still serve the value")
	assert.Equal(t, 1, v)

	removed := s.sweep()
	assert.Equal(t, 1, removed, "the sweep removes deadline == now")
	_, ok = s.get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), s.swept.Load())
}

// The sweep removes only what is due and leaves future and deadline-free
// entries alone.
func TestStore_SweepOnlyDue(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newStore(Options[string, int]{Capacity: 8, Clock: clk})

	now := clk.NowUnixNano()
	s.set("due", 1, now+int64(10*time.Millisecond))
	s.set("later", 2, now+int64(time.Hour))
	s.set("keep", 3, noDeadline)

	clk.add(20 * time.Millisecond)
	assert.Equal(t, 1, s.sweep())

	assert.Equal(t, []string{"later", "keep"}, keysInOrder(s))
	assert.Equal(t, 1, s.ttl.len())
	assert.Equal(t, 0, s.sweep(), "a second pass finds nothing")
}

// Records left in the sorted view by removals must not shoot down a key
// that was re-added without a deadline: the map is authoritative.
func TestStore_SweepSkipsStaleRecords(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newStore(Options[string, int]{Capacity: 8, Clock: clk})

	s.set("k", 1, clk.NowUnixNano()+int64(10*time.Millisecond))
	assert.Equal(t, 0, s.sweep()) // sorts the view; nothing due yet

	require.True(t, s.remove("k")) // leaves a stale record behind
	s.set("k", 2, noDeadline)      // fresh entry, no deadline

	clk.add(time.Hour)
	assert.Equal(t, 0, s.sweep(), "the stale record must be skipped")
	v, ok := s.get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, int64(0), s.swept.Load())
}

// Re-setting a key re-sorts the view, so an extended deadline moves the
// entry out of the sweep's reach.
func TestStore_SweepAfterDeadlineExtension(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	s := newStore(Options[string, int]{Capacity: 8, Clock: clk})

	now := clk.NowUnixNano()
	s.set("k", 1, now+int64(10*time.Millisecond))
	assert.Equal(t, 0, s.sweep())

	s.set("k", 1, now+int64(time.Hour)) // extend
	clk.add(20 * time.Millisecond)
	assert.Equal(t, 0, s.sweep(), "extended key must survive")

	clk.add(2 * time.Hour)
	assert.Equal(t, 1, s.sweep())
	assert.Equal(t, 0, s.length())
}

// Metrics receive hit/miss/evict/size signals from every path.
func TestStore_MetricsSignals(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	m := &countingMetrics{}
	s := newStore(Options[string, int]{Capacity: 2, Clock: clk, Metrics: m})

	s.set("a", 1, noDeadline)
	s.set("b", 2, clk.NowUnixNano()+int64(10*time.Millisecond))
	s.set("c", 3, noDeadline) // evicts a

	_, _ = s.get("c")       // hit
	_, _ = s.get("missing") // miss

	clk.add(20 * time.Millisecond)
	_, _ = s.get("b") // lazy expiry -> miss

	s.set("d", 4, clk.NowUnixNano()) // due immediately
	assert.Equal(t, 1, s.sweep())

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 2, m.misses)
	assert.Equal(t, 1, m.evicts[EvictCapacity])
	assert.Equal(t, 1, m.evicts[EvictTTL])
	assert.Equal(t, 1, m.evicts[EvictSweep])
	assert.Equal(t, 1, m.lastSize, "only c remains after the sweep")
}
