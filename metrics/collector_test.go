package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/tiercache"
)

type fixed tiercache.Stats

func (f fixed) Stats() tiercache.Stats { return tiercache.Stats(f) }

func TestCollectorExportsStats(t *testing.T) {
	src := fixed{L1Hits: 3, L2Hits: 1, Misses: 2, Sets: 5, Errors: 1, CompressionRatio: 0.25, L1Entries: 4}
	c := NewCollector(src, "app", prometheus.Labels{"cache": "users"})

	want := `
# HELP app_tiercache_hits_total Cache hits by tier.
# TYPE app_tiercache_hits_total counter
app_tiercache_hits_total{cache="users",tier="l1"} 3
app_tiercache_hits_total{cache="users",tier="shared"} 1
# HELP app_tiercache_sets_total Successful writes.
# TYPE app_tiercache_sets_total counter
app_tiercache_sets_total{cache="users"} 5
# HELP app_tiercache_compression_ratio Compressed bytes over uncompressed bytes; 1 when nothing was compressed.
# TYPE app_tiercache_compression_ratio gauge
app_tiercache_compression_ratio{cache="users"} 0.25
# HELP app_tiercache_l1_entries Entries resident in L1.
# TYPE app_tiercache_l1_entries gauge
app_tiercache_l1_entries{cache="users"} 4
`
	err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"app_tiercache_hits_total", "app_tiercache_sets_total",
		"app_tiercache_compression_ratio", "app_tiercache_l1_entries")
	if err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(c); n != 20 {
		t.Fatalf("series = %d, want 20", n)
	}
}

func TestHandlerServesLiveCache(t *testing.T) {
	ctx := context.Background()
	cache, err := tiercache.New[string](tiercache.Options[string]{})
	if err != nil {
		t.Fatal(err)
	}
	cache.Set(ctx, "k", "v")
	cache.Get(ctx, "k")

	h, err := Handler(NewCollector(cache, "", nil))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `tiercache_hits_total{tier="l1"} 1`) {
		t.Fatalf("metrics body:\n%s", body)
	}
}
