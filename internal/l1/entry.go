package l1

import (
	"time"

	"github.com/unkn0wn-root/tiercache/codec"
)

// EntryOverhead approximates the per-entry bookkeeping (list node, map slot,
// timestamps) added to the payload and key length when sizing an entry.
const EntryOverhead = 64

// Entry is the unit stored in the L1 tier.
type Entry[V any] struct {
	Key   string
	Value V

	TTL         time.Duration // <= 0: no expiration
	CreatedAt   time.Time
	AccessedAt  time.Time
	AccessCount uint64

	Tags         []string
	Dependencies []string // recorded only; no invalidation path reads them

	Format         codec.Format
	Compressed     bool
	OriginalSize   int
	CompressedSize int

	// Size is the deterministic footprint estimate used for the byte bound.
	Size int64
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e *Entry[V]) Expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// EstimateSize returns payload + key + EntryOverhead.
func EstimateSize(key string, payloadLen int) int64 {
	return int64(payloadLen) + int64(len(key)) + EntryOverhead
}
