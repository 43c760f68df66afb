package memory

import (
	"testing"
	"time"

	"archie/internal/tester"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUTTL_ExpiresIdleEntries(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := NewLRUTTL[string, int](10, 0, time.Minute, WithClock[string, int](clk.now))
	c.Set("a", 1, 0)
	clk.advance(30 * time.Second)
	v, ok := c.Get("a")
	tester.True(t, ok)
	tester.Eq(t, v, 1)

	clk.advance(31 * time.Second)
	_, ok = c.Get("a")
	tester.False(t, ok, "entry must expire after ttl without sliding")
}

func TestLRUTTL_SlidingExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := NewLRUTTL[string, int](10, 0, time.Minute,
		WithClock[string, int](clk.now), WithSlidingExpiry[string, int]())
	c.Set("a", 1, 0)
	for i := 0; i < 5; i++ {
		clk.advance(50 * time.Second)
		_, ok := c.Get("a")
		tester.True(t, ok, "active entry stays alive")
	}
	clk.advance(61 * time.Second)
	_, ok := c.Get("a")
	tester.False(t, ok)
}

func TestLRUTTL_MaxEntriesEvictsLeastRecent(t *testing.T) {
	var evicted []string
	c := NewLRUTTL[string, int](2, 0, time.Hour,
		WithEvictCallback[string, int](func(k string, _ int) { evicted = append(evicted, k) }))
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, _ = c.Get("a")
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	tester.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	tester.True(t, ok)
	tester.Eq(t, evicted, []string{"b"})
	tester.Eq(t, c.Len(), 2)
}

func TestLRUTTL_LenDropsExpired(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUTTL[string, int](10, 0, time.Second, WithClock[string, int](clk.now))
	c.Set("a", 1, 0)
	clk.advance(500 * time.Millisecond)
	c.Set("b", 2, 0)
	tester.Eq(t, c.Len(), 2)
	clk.advance(600 * time.Millisecond)
	tester.Eq(t, c.Len(), 1)
	c.Delete("b")
	tester.Eq(t, c.Len(), 0)
}
