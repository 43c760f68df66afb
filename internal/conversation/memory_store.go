package conversation

import (
	"context"
	"log"
	"sync"
	"time"

	memcache "archie/internal/cache/memory"
)

// MemoryStore keeps sessions in process with an idle TTL and a max-entry
// bound. Reads and writes copy sessions so no caller aliases stored state.
type MemoryStore struct {
	mu    sync.Mutex
	cache *memcache.LRUTTL[string, *Session]
	now   func() time.Time
}

type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now func() time.Time
}

// WithMemoryClock overrides time.Now, for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) { c.now = now }
}

func NewMemoryStore(ttl time.Duration, maxEntries int, opts ...MemoryOption) *MemoryStore {
	cfg := memoryConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		cache: memcache.NewLRUTTL[string, *Session](maxEntries, 0, ttl,
			memcache.WithSlidingExpiry[string, *Session](),
			memcache.WithClock[string, *Session](cfg.now),
			memcache.WithEvictCallback[string, *Session](func(id string, _ *Session) {
				log.Printf("conversation: evicted session %s", id)
			}),
		),
		now: cfg.now,
	}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s.Clone()
	now := m.now()
	cp.CreatedAt, cp.UpdatedAt, cp.Version = now, now, 1
	m.cache.Set(cp.ID, cp, 0)
	s.CreatedAt, s.UpdatedAt, s.Version = cp.CreatedAt, cp.UpdatedAt, cp.Version
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, SessionNotFound(id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cache.Get(id)
	if !ok {
		return nil, SessionNotFound(id)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	next.Version = cur.Version + 1
	next.UpdatedAt = m.now()
	m.cache.Set(id, next, 0)
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

func (m *MemoryStore) Len(context.Context) (int, error) {
	return m.cache.Len(), nil
}

func (m *MemoryStore) Close() error {
	m.cache.Clear()
	return nil
}
