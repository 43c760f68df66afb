package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"archie/internal/tester"
)

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()

	_, err := st.Get(ctx, id)
	tester.ErrIs(t, err, ErrSessionNotFound, "missing session")
	_, err = st.Update(ctx, id, func(*Session) error { return nil })
	tester.True(t, errors.Is(err, ErrSessionNotFound))

	s := NewSession(id, validForm(), time.Now())
	tester.NoErr(t, st.Create(ctx, s))
	tester.Eq(t, s.Version, int64(1))

	got, err := st.Get(ctx, id)
	tester.NoErr(t, err)
	tester.Eq(t, got.Phase, PhaseDiscovery)
	tester.Eq(t, got.FormInputs.Idea, "recipe sharing app")

	updated, err := st.Update(ctx, id, func(s *Session) error {
		return s.SetComponents([]Component{{ID: "db"}, {ID: "auth"}, {ID: "cdn"}}, PhaseDiscovery)
	})
	tester.NoErr(t, err)
	tester.Eq(t, updated.Version, int64(2))

	// A failing fn writes nothing.
	_, err = st.Update(ctx, id, func(s *Session) error {
		s.Components = nil
		return errors.New("abort")
	})
	tester.True(t, err != nil, "expected an error")
	got, err = st.Get(ctx, id)
	tester.NoErr(t, err)
	tester.Eq(t, len(got.Components), 3)
	tester.Eq(t, got.Version, int64(2))

	_, err = st.Update(ctx, id, func(s *Session) error { return s.Approve(time.Now()) })
	tester.NoErr(t, err)

	// Concurrent disjoint-key progress writes all land.
	var wg sync.WaitGroup
	for _, cid := range []string{"db", "auth", "cdn"} {
		wg.Add(1)
		go func(cid string) {
			defer wg.Done()
			_, err := st.Update(ctx, id, func(s *Session) error {
				return s.SetDetail(cid, ComponentDetail{EstimatedCost: fmt.Sprintf("$%s", cid)})
			})
			tester.NoErr(t, err)
		}(cid)
	}
	wg.Wait()
	got, err = st.Get(ctx, id)
	tester.NoErr(t, err)
	tester.True(t, got.Settled())
	tester.Eq(t, len(got.ComponentDetails), 3)
	tester.Eq(t, got.Version, int64(6))

	n, err := st.Len(ctx)
	tester.NoErr(t, err)
	tester.True(t, n >= 1, "at least one live session")

	tester.NoErr(t, st.Delete(ctx, id))
	_, err = st.Get(ctx, id)
	tester.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour, 100))
}

func TestCachedStore_Contract(t *testing.T) {
	exerciseStore(t, NewCachedStore(NewMemoryStore(time.Hour, 100), 16, time.Minute))
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Hour, 10)
	s := NewSession("a", validForm(), time.Now())
	tester.NoErr(t, st.Create(ctx, s))
	s.Phase = PhaseDeepDive

	got, err := st.Get(ctx, "a")
	tester.NoErr(t, err)
	tester.Eq(t, got.Phase, PhaseDiscovery, "caller mutation must not reach the store")
	got.Messages = append(got.Messages, Message{Content: "x"})
	again, _ := st.Get(ctx, "a")
	tester.Eq(t, len(again.Messages), 0)
}

func TestMemoryStore_TTLAndMaxEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_000, 0)
	clock := func() time.Time { return now }
	st := NewMemoryStore(time.Minute, 2, WithMemoryClock(clock))

	for _, id := range []string{"a", "b", "c"} {
		tester.NoErr(t, st.Create(ctx, NewSession(id, validForm(), now)))
	}
	_, err := st.Get(ctx, "a")
	tester.True(t, errors.Is(err, ErrSessionNotFound), "oldest session evicted at capacity")
	n, _ := st.Len(ctx)
	tester.Eq(t, n, 2)

	now = now.Add(2 * time.Minute)
	_, err = st.Get(ctx, "b")
	tester.True(t, errors.Is(err, ErrSessionNotFound), "idle session expired")
}

func TestRedisStore_Contract(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	st, err := NewRedisStoreFromURL(context.Background(), url, time.Minute)
	tester.NoErr(t, err)
	t.Cleanup(func() { _ = st.Close() })
	exerciseStore(t, st)
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("SESSION_PG_DSN")
	if dsn == "" {
		t.Skip("SESSION_PG_DSN not set")
	}
	st, err := NewPostgresStore(context.Background(), dsn, time.Minute)
	tester.NoErr(t, err)
	t.Cleanup(func() { _ = st.Close() })
	exerciseStore(t, st)
}

func TestOpenStore(t *testing.T) {
	st, err := OpenStore(context.Background(), StoreConfig{})
	tester.NoErr(t, err)
	_, ok := st.(*MemoryStore)
	tester.True(t, ok)

	_, err = OpenStore(context.Background(), StoreConfig{Driver: DriverRedis})
	tester.True(t, err != nil, "expected an error")
	_, err = OpenStore(context.Background(), StoreConfig{Driver: "etcd"})
	tester.True(t, err != nil, "expected an error")
}
