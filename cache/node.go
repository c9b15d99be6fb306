package cache

// node is an intrusive doubly linked list element owned by the store.
// It carries only the key/value and list links; expiry deadlines live in
// the TTL index, so recency order and expiry stay independent concerns.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is MRU, tail is LRU.
	prev *node[K, V]
	next *node[K, V]
}
