package cache

import (
	"cmp"
	"math"
	"slices"
)

// noDeadline marks a write without an expiry. It lies far outside any
// plausible clock reading, so a Clock sitting at or before the epoch
// still produces deadlines distinct from it.
const noDeadline int64 = math.MinInt64

// ttlRecord pairs a key with its absolute expiry deadline in UnixNano.
type ttlRecord[K comparable] struct {
	key      K
	deadline int64
}

// ttlIndex tracks one expiry deadline per key. The deadlines map is the
// authoritative state; sorted is a by-deadline view rebuilt on demand.
// Writes only mark the view dirty, keeping the hot write path O(1);
// removals leave stale records behind, which the sweep skips by
// cross-checking the map.
//
// Not safe for concurrent use: callers hold the store lock.
type ttlIndex[K comparable] struct {
	deadlines map[K]int64
	sorted    []ttlRecord[K]
	dirty     bool
}

func newTTLIndex[K comparable]() ttlIndex[K] {
	return ttlIndex[K]{deadlines: make(map[K]int64)}
}

// set records an absolute deadline for k and invalidates the sorted view.
func (ix *ttlIndex[K]) set(k K, deadline int64) {
	ix.deadlines[k] = deadline
	ix.dirty = true
}

// clear drops the deadline for k, if any. The sorted view is left alone:
// a stale record is cheaper than a re-sort, and the sweep detects it.
func (ix *ttlIndex[K]) clear(k K) {
	delete(ix.deadlines, k)
}

// expired reports whether k has a deadline strictly in the past.
// Keys without a deadline never expire. An entry whose deadline equals
// now is still readable; the sweep reclaims it.
func (ix *ttlIndex[K]) expired(k K, now int64) bool {
	dl, ok := ix.deadlines[k]
	return ok && dl < now
}

// len returns the number of live deadlines.
func (ix *ttlIndex[K]) len() int { return len(ix.deadlines) }

// sortIfDirty rebuilds the sorted view from the live map when a write
// invalidated it. Records are ordered by ascending deadline; the sort is
// stable, so equal deadlines keep their relative order from the rebuild.
func (ix *ttlIndex[K]) sortIfDirty() {
	if !ix.dirty {
		return
	}
	if cap(ix.sorted) < len(ix.deadlines) {
		ix.sorted = make([]ttlRecord[K], 0, len(ix.deadlines))
	} else {
		ix.sorted = ix.sorted[:0]
	}
	for k, dl := range ix.deadlines {
		ix.sorted = append(ix.sorted, ttlRecord[K]{key: k, deadline: dl})
	}
	slices.SortStableFunc(ix.sorted, func(a, b ttlRecord[K]) int {
		return cmp.Compare(a.deadline, b.deadline)
	})
	ix.dirty = false
}
