package lrucache

type node[K comparable, V any] struct {
	k     K
	v     V
	stamp uint64 // order of last Push. Higher is more recent.
}

// Cache is a fixed capacity key-value table. Pushing to a full cache evicts
// the entry that was pushed least recently. Memory is reserved once in [New].
type Cache[K comparable, V any] struct {
	nodes []node[K, V]
	clock uint64
}

func New[K comparable, V any](maxSize int) Cache[K, V] {
	if maxSize <= 0 {
		panic("lrucache max size must be > 0")
	}
	return Cache[K, V]{
		nodes: make([]node[K, V], 0, maxSize),
	}
}

// Get returns the value stored under k. Get does not refresh the entry.
func (c *Cache[K, V]) Get(k K) (v V, ok bool) {
	if i := c.find(k); i >= 0 {
		return c.nodes[i].v, true
	}
	return v, false
}

// Push stores v under k and marks the entry as most recent. If the cache is
// full and k is not present the least recently pushed entry is evicted and returned.
func (c *Cache[K, V]) Push(k K, v V) (evictedKey K, evicted bool) {
	c.clock++
	if i := c.find(k); i >= 0 {
		c.nodes[i].v = v
		c.nodes[i].stamp = c.clock
		return evictedKey, false
	}
	if len(c.nodes) < cap(c.nodes) {
		c.nodes = append(c.nodes, node[K, V]{k: k, v: v, stamp: c.clock})
		return evictedKey, false
	}
	oldest := 0
	for i := 1; i < len(c.nodes); i++ {
		if c.nodes[i].stamp < c.nodes[oldest].stamp {
			oldest = i
		}
	}
	evictedKey = c.nodes[oldest].k
	c.nodes[oldest] = node[K, V]{k: k, v: v, stamp: c.clock}
	return evictedKey, true
}

// Delete removes k from the cache and reports whether it was present.
func (c *Cache[K, V]) Delete(k K) bool {
	i := c.find(k)
	if i < 0 {
		return false
	}
	c.remove(i)
	return true
}

// DeleteFunc removes every entry for which del returns true and returns the amount removed.
func (c *Cache[K, V]) DeleteFunc(del func(K, V) bool) (deleted int) {
	for i := 0; i < len(c.nodes); {
		if del(c.nodes[i].k, c.nodes[i].v) {
			c.remove(i)
			deleted++
			continue
		}
		i++
	}
	return deleted
}

// Len returns the amount of entries in the cache.
func (c *Cache[K, V]) Len() int { return len(c.nodes) }

// Cap returns the maximum amount of entries the cache holds.
func (c *Cache[K, V]) Cap() int { return cap(c.nodes) }

// Reset removes all entries without releasing memory.
func (c *Cache[K, V]) Reset() {
	clear(c.nodes)
	c.nodes = c.nodes[:0]
	c.clock = 0
}

func (c *Cache[K, V]) find(k K) int {
	for i := range c.nodes {
		if c.nodes[i].k == k {
			return i
		}
	}
	return -1
}

// remove swaps the last entry into i. Order is kept by stamps, not position.
func (c *Cache[K, V]) remove(i int) {
	last := len(c.nodes) - 1
	c.nodes[i] = c.nodes[last]
	var z node[K, V]
	c.nodes[last] = z
	c.nodes = c.nodes[:last]
}
