package tiercache

import (
	"sync/atomic"
	"time"
)

// counters are monotonic for the lifetime of a Cache; there is no reset.
type counters struct {
	l1Hits, l1Misses  atomic.Uint64
	l2Hits, l2Misses  atomic.Uint64
	misses            atomic.Uint64
	sets, deletes     atomic.Uint64
	evictions         atomic.Uint64
	errors            atomic.Uint64
	slowOps           atomic.Uint64
	compressedEntries atomic.Uint64
	uncompressedBytes atomic.Uint64
	compressedBytes   atomic.Uint64
}

// Stats is a point-in-time snapshot. Rates are percentages; derived fields are
// computed when the snapshot is taken.
type Stats struct {
	L1Hits   uint64 `json:"l1_hits"`
	L1Misses uint64 `json:"l1_misses"`
	L2Hits   uint64 `json:"l2_hits"`
	L2Misses uint64 `json:"l2_misses"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`

	Sets      uint64 `json:"sets"`
	Deletes   uint64 `json:"deletes"`
	Evictions uint64 `json:"evictions"`
	Errors    uint64 `json:"errors"`
	SlowOps   uint64 `json:"slow_operations"`

	CompressedEntries uint64 `json:"compressed_entries"`
	UncompressedBytes uint64 `json:"uncompressed_bytes"`
	CompressedBytes   uint64 `json:"compressed_bytes"`

	HitRate          float64 `json:"hit_rate"`
	L1HitRate        float64 `json:"l1_hit_rate"`
	L2HitRate        float64 `json:"l2_hit_rate"`
	CompressionRatio float64 `json:"compression_ratio"` // compressed/uncompressed; 1 when nothing compressed

	L1Entries int   `json:"l1_entries"`
	L1Bytes   int64 `json:"l1_bytes"`
	Tags      int   `json:"tags"`
}

func percent(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// Stats returns a snapshot of the counters plus derived rates.
func (c *Cache[V]) Stats() Stats {
	s := Stats{
		L1Hits:            c.stats.l1Hits.Load(),
		L1Misses:          c.stats.l1Misses.Load(),
		L2Hits:            c.stats.l2Hits.Load(),
		L2Misses:          c.stats.l2Misses.Load(),
		Misses:            c.stats.misses.Load(),
		Sets:              c.stats.sets.Load(),
		Deletes:           c.stats.deletes.Load(),
		Evictions:         c.stats.evictions.Load(),
		Errors:            c.stats.errors.Load(),
		SlowOps:           c.stats.slowOps.Load(),
		CompressedEntries: c.stats.compressedEntries.Load(),
		UncompressedBytes: c.stats.uncompressedBytes.Load(),
		CompressedBytes:   c.stats.compressedBytes.Load(),
		L1Entries:         c.l1.Len(),
		L1Bytes:           c.l1.Bytes(),
		Tags:              c.tags.len(),
	}
	s.Hits = s.L1Hits + s.L2Hits
	s.HitRate = percent(s.Hits, s.Hits+s.Misses)
	s.L1HitRate = percent(s.L1Hits, s.L1Hits+s.L1Misses)
	s.L2HitRate = percent(s.L2Hits, s.L2Hits+s.L2Misses)
	s.CompressionRatio = 1
	if s.UncompressedBytes > 0 {
		s.CompressionRatio = float64(s.CompressedBytes) / float64(s.UncompressedBytes)
	}
	return s
}

// observe counts op as slow when it ran past the threshold. Timing uses the
// wall clock, not Options.Clock.
func (c *Cache[V]) observe(op, key string, start time.Time) {
	d := time.Since(start)
	if d <= c.slowOp {
		return
	}
	c.stats.slowOps.Add(1)
	c.hooks.SlowOperation(op, key, d)
	c.log.Debug("slow cache operation", Fields{"op": op, "key": key, "took": d})
}
