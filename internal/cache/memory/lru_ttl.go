package memory

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	size      int
}

// LRUTTL is a threadsafe LRU cache with per-entry TTL.
// With sliding expiry a hit pushes the entry's deadline out by ttl, so idle
// entries expire and active ones stay.
type LRUTTL[K comparable, V any] struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[K]*list.Element
	maxEntries int
	maxBytes   int
	totalBytes int
	ttl        time.Duration
	sliding    bool
	now        func() time.Time
	onEvict    func(K, V)
}

type Option[K comparable, V any] func(*LRUTTL[K, V])

// WithSlidingExpiry refreshes an entry's TTL on every Get.
func WithSlidingExpiry[K comparable, V any]() Option[K, V] {
	return func(c *LRUTTL[K, V]) { c.sliding = true }
}

// WithClock overrides time.Now, for tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRUTTL[K, V]) { c.now = now }
}

// WithEvictCallback is called, under the cache lock, for entries removed by
// capacity or expiry. It is not called for Delete.
func WithEvictCallback[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *LRUTTL[K, V]) { c.onEvict = fn }
}

func NewLRUTTL[K comparable, V any](maxEntries int, maxBytes int, ttl time.Duration, opts ...Option[K, V]) *LRUTTL[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	c := &LRUTTL[K, V]{
		ll:         list.New(),
		items:      make(map[K]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *LRUTTL[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := ele.Value.(*entry[K, V])
	now := c.now()
	if now.After(ent.expiresAt) {
		c.evictElement(ele)
		return zero, false
	}
	if c.sliding {
		ent.expiresAt = now.Add(c.ttl)
	}
	c.ll.MoveToFront(ele)
	return ent.value, true
}

// Len returns the number of live entries, dropping expired ones first.
func (c *LRUTTL[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for ele := c.ll.Back(); ele != nil; {
		prev := ele.Prev()
		if now.After(ele.Value.(*entry[K, V]).expiresAt) {
			c.evictElement(ele)
		}
		ele = prev
	}
	return c.ll.Len()
}

func (c *LRUTTL[K, V]) Set(key K, value V, sizeBytes int) {
	if c == nil {
		return
	}
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.items[key]; ok {
		ent := ele.Value.(*entry[K, V])
		c.totalBytes -= ent.size
		ent.value = value
		ent.size = sizeBytes
		ent.expiresAt = c.now().Add(c.ttl)
		c.totalBytes += ent.size
		c.ll.MoveToFront(ele)
		c.evictLocked()
		return
	}

	ent := &entry[K, V]{
		key:       key,
		value:     value,
		size:      sizeBytes,
		expiresAt: c.now().Add(c.ttl),
	}
	ele := c.ll.PushFront(ent)
	c.items[key] = ele
	c.totalBytes += sizeBytes
	c.evictLocked()
}

func (c *LRUTTL[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[key]; ok {
		c.removeElement(ele)
	}
}

func (c *LRUTTL[K, V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll = list.New()
	c.items = make(map[K]*list.Element)
	c.totalBytes = 0
}

func (c *LRUTTL[K, V]) evictLocked() {
	for {
		if c.ll.Len() == 0 {
			return
		}
		if c.ll.Len() <= c.maxEntries && (c.maxBytes <= 0 || c.totalBytes <= c.maxBytes) {
			return
		}
		c.evictElement(c.ll.Back())
	}
}

func (c *LRUTTL[K, V]) evictElement(ele *list.Element) {
	if ele == nil {
		return
	}
	ent := ele.Value.(*entry[K, V])
	c.removeElement(ele)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}

func (c *LRUTTL[K, V]) removeElement(ele *list.Element) {
	if ele == nil {
		return
	}
	c.ll.Remove(ele)
	ent := ele.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.totalBytes -= ent.size
	if c.totalBytes < 0 {
		c.totalBytes = 0
	}
}
