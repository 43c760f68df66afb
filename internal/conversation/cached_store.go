package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore is a read-through cache in front of a durable Store. Writes go
// to the origin first; the cache only ever moves to a newer Version.
type CachedStore struct {
	origin Store
	mu     sync.Mutex
	cache  *expirable.LRU[string, *Session]
}

func NewCachedStore(origin Store, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{
		origin: origin,
		cache:  expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

func (c *CachedStore) Create(ctx context.Context, s *Session) error {
	if err := c.origin.Create(ctx, s); err != nil {
		return err
	}
	c.put(s.Clone())
	return nil
}

func (c *CachedStore) Get(ctx context.Context, id string) (*Session, error) {
	if s, ok := c.cache.Get(id); ok {
		return s.Clone(), nil
	}
	s, err := c.origin.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(s.Clone())
	return s, nil
}

func (c *CachedStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	s, err := c.origin.Update(ctx, id, fn)
	if err != nil {
		if KindOf(err) == KindSessionNotFound {
			c.cache.Remove(id)
		}
		return nil, err
	}
	c.put(s.Clone())
	return s, nil
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	c.cache.Remove(id)
	return c.origin.Delete(ctx, id)
}

func (c *CachedStore) Len(ctx context.Context) (int, error) {
	return c.origin.Len(ctx)
}

func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.origin.Close()
}

func (c *CachedStore) put(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.cache.Peek(s.ID); ok && old.Version > s.Version {
		return
	}
	c.cache.Add(s.ID, s)
}
