package l1

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func entry(clk *fakeClock, v string, ttl time.Duration) Entry[string] {
	now := clk.Now()
	return Entry[string]{Value: v, TTL: ttl, CreatedAt: now, AccessedAt: now, Size: EstimateSize("k", len(v))}
}

func TestLRUEvictsOldestByCount(t *testing.T) {
	clk := newFakeClock()
	s := New[string](2, 1<<20, clk.Now)

	for _, k := range []string{"a", "b", "c"} {
		if _, err := s.Set(k, entry(clk, k, 0)); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	if _, ok := s.Get("a"); ok {
		t.Fatalf("a should have been evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := s.Get(k); !ok {
			t.Fatalf("%s should be resident", k)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("Len=%d want 2", s.Len())
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	clk := newFakeClock()
	s := New[string](2, 1<<20, clk.Now)
	_, _ = s.Set("a", entry(clk, "a", 0))
	_, _ = s.Set("b", entry(clk, "b", 0))

	if _, ok := s.Get("a"); !ok {
		t.Fatal("a missing")
	}
	evicted, _ := s.Set("c", entry(clk, "c", 0))
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted=%v want [b]", evicted)
	}
}

func TestByteBoundEvicts(t *testing.T) {
	clk := newFakeClock()
	// three 100-byte entries do not fit in 250 bytes
	s := New[string](100, 250, clk.Now)
	for i := 0; i < 3; i++ {
		e := entry(clk, "", 0)
		e.Size = 100
		if _, err := s.Set(fmt.Sprint(i), e); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 2 || s.Bytes() != 200 {
		t.Fatalf("Len=%d Bytes=%d want 2/200", s.Len(), s.Bytes())
	}
	if s.Contains("0") {
		t.Fatalf("oldest entry should be gone")
	}
}

func TestReplaceSubtractsPriorSize(t *testing.T) {
	clk := newFakeClock()
	s := New[string](10, 1000, clk.Now)
	e := entry(clk, "x", 0)
	e.Size = 600
	_, _ = s.Set("k", e)
	e.Size = 700
	evicted, err := s.Set("k", e)
	if err != nil || len(evicted) != 0 {
		t.Fatalf("replace should not evict: %v %v", evicted, err)
	}
	if s.Bytes() != 700 || s.Len() != 1 {
		t.Fatalf("Bytes=%d Len=%d", s.Bytes(), s.Len())
	}
}

func TestOversizedEntryRejected(t *testing.T) {
	clk := newFakeClock()
	s := New[string](10, 100, clk.Now)
	_, _ = s.Set("keep", entry(clk, "v", 0))
	e := entry(clk, "big", 0)
	e.Size = 101
	if _, err := s.Set("big", e); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	if !s.Contains("keep") {
		t.Fatalf("oversized write must not flush the store")
	}
}

func TestExpiredEntryIsLazilyRemoved(t *testing.T) {
	clk := newFakeClock()
	s := New[string](10, 1<<20, clk.Now)
	_, _ = s.Set("k", entry(clk, "v", time.Second))

	clk.Advance(500 * time.Millisecond)
	if _, ok := s.Get("k"); !ok {
		t.Fatalf("entry should be live before TTL")
	}
	clk.Advance(time.Second)
	// still resident until someone reads it
	if s.Len() != 1 {
		t.Fatalf("no sweeper expected, Len=%d", s.Len())
	}
	if _, ok := s.Get("k"); ok {
		t.Fatalf("entry should be expired")
	}
	if s.Len() != 0 || s.Bytes() != 0 {
		t.Fatalf("expired entry not removed: Len=%d Bytes=%d", s.Len(), s.Bytes())
	}
}

func TestAccessBookkeeping(t *testing.T) {
	clk := newFakeClock()
	s := New[string](10, 1<<20, clk.Now)
	_, _ = s.Set("k", entry(clk, "v", 0))
	clk.Advance(time.Minute)
	_, _ = s.Get("k")
	got, _ := s.Get("k")
	if got.AccessCount != 2 {
		t.Fatalf("AccessCount=%d want 2", got.AccessCount)
	}
	if got.AccessedAt.Before(got.CreatedAt) || !got.AccessedAt.Equal(clk.Now()) {
		t.Fatalf("AccessedAt=%v CreatedAt=%v", got.AccessedAt, got.CreatedAt)
	}
}

func TestDeleteMatchingAndClear(t *testing.T) {
	clk := newFakeClock()
	s := New[string](10, 1<<20, clk.Now)
	for _, k := range []string{"user:1", "user:2", "order:1"} {
		_, _ = s.Set(k, entry(clk, k, 0))
	}
	n := s.DeleteMatching(func(k string) bool { return len(k) > 5 && k[:5] == "user:" })
	if n != 2 || s.Len() != 1 {
		t.Fatalf("DeleteMatching n=%d Len=%d", n, s.Len())
	}
	if !s.Delete("order:1") || s.Delete("order:1") {
		t.Fatalf("Delete should report presence exactly once")
	}
	_, _ = s.Set("x", entry(clk, "x", 0))
	s.Clear()
	if s.Len() != 0 || s.Bytes() != 0 || len(s.Keys()) != 0 {
		t.Fatalf("Clear left state behind")
	}
}

func TestConcurrentAccess(t *testing.T) {
	clk := newFakeClock()
	s := New[string](50, 1<<20, clk.Now)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("%d-%d", g, i%70)
				_, _ = s.Set(k, entry(clk, k, 0))
				_, _ = s.Get(k)
			}
		}(g)
	}
	wg.Wait()
	if s.Len() > 50 {
		t.Fatalf("count bound violated: %d", s.Len())
	}
}
