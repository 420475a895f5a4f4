package tiercache

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/tiercache/backend"
	bcb "github.com/unkn0wn-root/tiercache/backend/bigcache"
	"github.com/unkn0wn-root/tiercache/backend/memory"
	rsb "github.com/unkn0wn-root/tiercache/backend/ristretto"
)

// Every in-process backend must carry a cache through the shared-tier paths.
func TestInProcessBackends(t *testing.T) {
	ctx := context.Background()
	mk := map[string]func(t *testing.T) backend.Backend{
		"memory": func(*testing.T) backend.Backend { return memory.New() },
		"bigcache": func(t *testing.T) backend.Backend {
			b, err := bcb.New(bcb.Config{LifeWindow: time.Hour, CleanWindow: time.Minute})
			if err != nil {
				t.Fatalf("bigcache: %v", err)
			}
			return b
		},
		"ristretto": func(t *testing.T) backend.Backend {
			b, err := rsb.New(rsb.Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
			if err != nil {
				t.Fatalf("ristretto: %v", err)
			}
			return b
		},
	}

	for name, newBackend := range mk {
		t.Run(name, func(t *testing.T) {
			c := newTestCache(t, newBackend(t), func(o *Options[user]) { o.OwnsBackend = true })

			v := user{ID: "1", Name: "Ada"}
			c.Set(ctx, "user:1", v)
			c.Set(ctx, "user:2", v)
			c.Set(ctx, "post:1", v)

			c.ClearAll(ctx, WithLevel(LevelL1))
			if got, ok := c.Get(ctx, "user:1"); !ok || got != v {
				t.Fatalf("shared read: ok=%v got=%v", ok, got)
			}
			if n := c.InvalidateByPattern(ctx, "user:*"); n != 2 {
				t.Fatalf("InvalidateByPattern = %d, want 2", n)
			}
			if !c.Exists(ctx, "post:1") {
				t.Fatalf("post:1 lost")
			}
			if rep := c.HealthCheck(ctx); rep.Status != Healthy {
				t.Fatalf("health: %+v", rep)
			}
		})
	}
}

// bigcache evicts on its own LifeWindow only, so per-entry TTLs are enforced
// from the stored envelope.
func TestBigcacheHonorsEntryTTL(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	be, err := bcb.New(bcb.Config{LifeWindow: time.Hour, CleanWindow: time.Minute})
	if err != nil {
		t.Fatalf("bigcache: %v", err)
	}
	c := newTestCache(t, be, func(o *Options[user]) {
		o.OwnsBackend = true
		o.Clock = clk.Now
	})

	c.Set(ctx, "k", user{ID: "1"}, WithTTL(time.Second))
	c.Set(ctx, "long", user{ID: "2"}, WithTTL(time.Minute))
	clk.Advance(5 * time.Second)

	if _, ok := c.Get(ctx, "k", WithLevel(LevelL1)); ok {
		t.Fatalf("L1 served an expired entry")
	}
	if got, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expired entry served from the shared tier: %+v", got)
	}
	if c.Exists(ctx, "k") {
		t.Fatalf("Exists on expired entry")
	}
	if _, ok := c.Inspect(ctx, "k"); ok {
		t.Fatalf("Inspect on expired entry")
	}
	if ok, _ := be.Exists(ctx, "tiercache:k"); ok {
		t.Fatalf("expired entry left in bigcache")
	}
	if s := c.Stats(); s.Errors != 0 {
		t.Fatalf("expiry counted as an error: %+v", s)
	}

	c.ClearAll(ctx, WithLevel(LevelL1))
	if got, ok := c.Get(ctx, "long"); !ok || got.ID != "2" {
		t.Fatalf("live entry: ok=%v got=%+v", ok, got)
	}
}
