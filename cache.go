package tiercache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/tiercache/backend"
	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/compress"
	"github.com/unkn0wn-root/tiercache/internal/l1"
	"github.com/unkn0wn-root/tiercache/internal/wire"
)

// Cache is the two-tier orchestrator. It owns the L1 store, the tag index and
// the counters; the backend is shared and only closed when OwnsBackend is set.
// All methods are safe for concurrent use.
type Cache[V any] struct {
	prefix      string
	backend     backend.Backend
	ownsBackend bool

	ser           *codec.Serializer[V]
	defaultFormat codec.Format
	comp          compress.Compressor
	compressOn    bool
	compressMin   int

	defaultTTL time.Duration
	maxTTL     time.Duration
	slowOp     time.Duration
	warmLimit  int

	l1     *l1.Store[V]
	tags   *tagIndex
	stats  counters
	flight singleflight.Group

	log   Logger
	hooks Hooks
	now   func() time.Time
}

// New builds a Cache. The only error it returns is a *ConfigError.
func New[V any](opts Options[V]) (*Cache[V], error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	cfg := opts.Config.withDefaults()

	if opts.DefaultFormat != "" && !opts.DefaultFormat.Valid() {
		return nil, &ConfigError{Field: "default_format", Reason: fmt.Sprintf("unknown format %q", opts.DefaultFormat)}
	}

	c := &Cache[V]{
		prefix:        cfg.NamespacePrefix,
		backend:       opts.Backend,
		ownsBackend:   opts.OwnsBackend,
		ser:           codec.NewSerializer[V](),
		defaultFormat: coalesce(opts.DefaultFormat, codec.FormatStructured),
		compressOn:    *cfg.CompressionEnabled,
		compressMin:   cfg.CompressionThreshold,
		defaultTTL:    cfg.DefaultTTL,
		maxTTL:        cfg.MaxTTL,
		slowOp:        cfg.SlowOpThreshold,
		warmLimit:     cfg.WarmConcurrency,
		tags:          newTagIndex(),
	}

	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.now = opts.Clock
	if c.now == nil {
		c.now = time.Now
	}

	if opts.Compressor != nil {
		c.comp = opts.Compressor
	} else {
		c.comp, _ = compress.ByName(cfg.CompressionAlgorithm) // validated above
	}
	for f, cd := range opts.Codecs {
		if !f.Valid() {
			return nil, &ConfigError{Field: "codecs", Reason: fmt.Sprintf("unknown format %q", f)}
		}
		c.ser.Register(f, cd)
	}

	c.l1 = l1.New[V](cfg.L1MaxEntries, cfg.L1MaxMemoryBytes, c.now)
	return c, nil
}

// Close releases the backend when the cache owns it. L1 is dropped.
func (c *Cache[V]) Close(ctx context.Context) error {
	c.l1.Clear()
	c.tags.reset()
	if c.ownsBackend && c.backend != nil {
		return c.backend.Close(ctx)
	}
	return nil
}

// Get returns the cached value for key. A miss, an expired entry and any
// internal failure all report ok=false.
func (c *Cache[V]) Get(ctx context.Context, key string, opts ...Option) (V, bool) {
	o := c.resolve(opts)
	defer c.observe("get", key, time.Now())

	if o.level.l1() {
		if e, ok := c.l1.Get(key); ok {
			c.stats.l1Hits.Add(1)
			return e.Value, true
		}
		c.stats.l1Misses.Add(1)
	}

	if o.level.shared() && c.backend != nil {
		v, env, ok := c.fetch(ctx, key)
		if ok {
			c.stats.l2Hits.Add(1)
			if o.level == LevelBoth {
				c.promote(key, v, env)
			}
			return v, true
		}
		c.stats.l2Misses.Add(1)
	}

	c.stats.misses.Add(1)
	var zero V
	return zero, false
}

// GetOr is Get with a caller-supplied default for misses.
func (c *Cache[V]) GetOr(ctx context.Context, key string, def V, opts ...Option) V {
	if v, ok := c.Get(ctx, key, opts...); ok {
		return v
	}
	return def
}

// Set stores value in the tiers selected by WithLevel. It reports true only if
// every selected tier accepted the write.
func (c *Cache[V]) Set(ctx context.Context, key string, value V, opts ...Option) bool {
	o := c.resolve(opts)
	defer c.observe("set", key, time.Now())

	ttl := c.ttlFor(o)
	payload, format, err := c.ser.Serialize(value, o.format)
	if err != nil {
		c.fail("set", key, &OpError{Op: "set", Key: key, Kind: ErrSerialization, Err: err})
		return false
	}
	if format != o.format {
		c.hooks.FormatFallback(key, o.format, format)
		c.log.Debug("format fallback", Fields{"key": key, "from": o.format, "to": format})
	}

	now := c.now()
	entry := l1.Entry[V]{
		Value:          value,
		TTL:            ttl,
		CreatedAt:      now,
		AccessedAt:     now,
		Tags:           o.tags,
		Dependencies:   o.deps,
		Format:         format,
		OriginalSize:   len(payload),
		CompressedSize: len(payload),
		Size:           l1.EstimateSize(key, len(payload)),
	}

	ok, stored := true, false
	if o.level.shared() {
		switch {
		case c.backend != nil:
			if err := c.putShared(ctx, key, payload, &entry); err != nil {
				c.fail("set", key, err)
				ok = false
			} else {
				stored = true
			}
		case o.level == LevelShared:
			c.fail("set", key, &OpError{Op: "set", Key: key, Kind: ErrNoBackend, Err: ErrNoBackend})
			ok = false
		}
	}

	if o.level.l1() {
		if c.setL1(key, entry) {
			stored = true
		} else {
			ok = false
		}
	}

	if stored {
		c.tags.add(key, o.tags)
	}
	if ok {
		c.stats.sets.Add(1)
	}
	return ok
}

// Delete removes key from the selected tiers. It reports true when the key was
// present in at least one of them and no tier failed.
func (c *Cache[V]) Delete(ctx context.Context, key string, opts ...Option) bool {
	o := c.resolve(opts)
	defer c.observe("delete", key, time.Now())

	removed, ok := false, true
	if o.level.l1() && c.l1.Delete(key) {
		removed = true
	}
	if o.level.shared() && c.backend != nil {
		n, err := c.backend.Del(ctx, c.storageKey(key))
		if err != nil {
			c.fail("delete", key, backendErr("delete", key, err))
			ok = false
		} else if n > 0 {
			removed = true
		}
	}
	if removed {
		c.stats.deletes.Add(1)
	}
	return ok && removed
}

// Exists reports whether a live entry is present in any selected tier.
func (c *Cache[V]) Exists(ctx context.Context, key string, opts ...Option) bool {
	o := c.resolve(opts)
	defer c.observe("exists", key, time.Now())

	if o.level.l1() && c.l1.Contains(key) {
		return true
	}
	if o.level.shared() && c.backend != nil {
		sk := c.storageKey(key)
		raw, ok, err := c.backend.Get(ctx, sk)
		if err != nil {
			c.fail("exists", key, backendErr("exists", key, err))
			return false
		}
		if !ok {
			return false
		}
		// undecodable entries still occupy the key; Get heals them
		env, err := wire.Decode(raw)
		return err != nil || !c.expired(ctx, key, sk, env)
	}
	return false
}

// InvalidateByTags deletes every key indexed under any of tags and forgets
// the tags. It returns the number of keys actually removed.
func (c *Cache[V]) InvalidateByTags(ctx context.Context, tags ...string) int {
	defer c.observe("invalidate_tags", strings.Join(tags, ","), time.Now())

	n := 0
	for _, k := range c.tags.take(tags) {
		if c.Delete(ctx, k) {
			n++
		}
	}
	c.log.Debug("invalidated by tags", Fields{"tags": tags, "removed": n})
	return n
}

// InvalidateByPattern deletes keys matching a Redis glob (*, ?, [abc], [^abc],
// backslash escapes; braces are literal, "[!" is rejected) in the logical
// keyspace. It scans the shared store's keyspace: an administrative operation,
// not a hot path. Returns the number of shared-tier keys deleted, or the number
// of L1 keys deleted when there is no backend.
func (c *Cache[V]) InvalidateByPattern(ctx context.Context, pattern string) int {
	defer c.observe("invalidate_pattern", pattern, time.Now())

	match, err := backend.Glob(pattern)
	if err != nil {
		c.fail("invalidate_pattern", pattern, &OpError{Op: "invalidate_pattern", Key: pattern, Kind: ErrConfiguration, Err: err})
		return 0
	}

	count := 0
	if c.backend != nil {
		keys, err := c.backend.Keys(ctx, escapeGlob(c.prefix)+pattern)
		if err != nil {
			c.fail("invalidate_pattern", pattern, backendErr("keys", pattern, err))
		} else if len(keys) > 0 {
			n, err := c.backend.Del(ctx, keys...)
			if err != nil {
				c.fail("invalidate_pattern", pattern, backendErr("delete", pattern, err))
			}
			count = int(n)
			for _, k := range keys {
				c.l1.Delete(strings.TrimPrefix(k, c.prefix))
			}
		}
	}

	local := c.l1.DeleteMatching(match)
	if c.backend == nil {
		count = local
	}
	c.stats.deletes.Add(uint64(count))
	return count
}

// ClearAll empties the selected tiers and resets the tag index.
func (c *Cache[V]) ClearAll(ctx context.Context, opts ...Option) bool {
	o := c.resolve(opts)
	defer c.observe("clear", "", time.Now())

	ok := true
	if o.level.l1() {
		c.l1.Clear()
	}
	if o.level.shared() && c.backend != nil {
		if err := c.clearShared(ctx); err != nil {
			c.fail("clear", "", backendErr("clear", "", err))
			ok = false
		}
	}
	c.tags.reset()
	return ok
}

func (c *Cache[V]) clearShared(ctx context.Context) error {
	if c.ownsBackend {
		return c.backend.FlushAll(ctx)
	}
	keys, err := c.backend.Keys(ctx, escapeGlob(c.prefix)+"*")
	if err != nil || len(keys) == 0 {
		return err
	}
	_, err = c.backend.Del(ctx, keys...)
	return err
}

// Warm sets every entry, a few at a time, and returns how many writes succeeded.
// opts apply to every entry.
func (c *Cache[V]) Warm(ctx context.Context, entries map[string]V, opts ...Option) int {
	var ok atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(c.warmLimit)
	for k, v := range entries {
		k, v := k, v
		g.Go(func() error {
			if c.Set(ctx, k, v, opts...) {
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load())
}

// EntryInfo is the metadata of a cached entry, for diagnostics.
type EntryInfo struct {
	Key            string
	Level          Level // tier the info was read from
	TTL            time.Duration
	CreatedAt      time.Time
	AccessedAt     time.Time
	AccessCount    uint64
	Tags           []string
	Dependencies   []string
	Format         codec.Format
	Compressed     bool
	OriginalSize   int
	CompressedSize int
	Size           int64
}

// Inspect returns entry metadata without counting a hit or touching recency.
// Shared-tier entries carry no access, tag or dependency data.
func (c *Cache[V]) Inspect(ctx context.Context, key string) (EntryInfo, bool) {
	if e, ok := c.l1.Peek(key); ok {
		return EntryInfo{
			Key: key, Level: LevelL1, TTL: e.TTL, CreatedAt: e.CreatedAt, AccessedAt: e.AccessedAt,
			AccessCount: e.AccessCount, Tags: e.Tags, Dependencies: e.Dependencies, Format: e.Format,
			Compressed: e.Compressed, OriginalSize: e.OriginalSize, CompressedSize: e.CompressedSize, Size: e.Size,
		}, true
	}
	if c.backend == nil {
		return EntryInfo{}, false
	}
	sk := c.storageKey(key)
	raw, ok, err := c.backend.Get(ctx, sk)
	if err != nil {
		c.fail("inspect", key, backendErr("inspect", key, err))
		return EntryInfo{}, false
	}
	if !ok {
		return EntryInfo{}, false
	}
	env, err := wire.Decode(raw)
	if err != nil || c.expired(ctx, key, sk, env) {
		return EntryInfo{}, false
	}
	return EntryInfo{
		Key: key, Level: LevelShared, TTL: env.TTL, CreatedAt: env.CreatedAt, AccessedAt: env.CreatedAt,
		Format: env.Format, Compressed: env.Compressed(), OriginalSize: env.OriginalSize,
		CompressedSize: env.CompressedSize, Size: int64(len(raw)),
	}, true
}

func (c *Cache[V]) resolve(opts []Option) opConfig {
	o := opConfig{level: LevelBoth, format: c.defaultFormat}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// ttlFor applies the default and clamps to MaxTTL. MaxTTL is always positive
// once defaults are applied, so a non-positive TTL becomes MaxTTL.
func (c *Cache[V]) ttlFor(o opConfig) time.Duration {
	ttl := c.defaultTTL
	if o.ttlSet {
		ttl = o.ttl
	}
	if c.maxTTL > 0 && (ttl <= 0 || ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	return ttl
}

func (c *Cache[V]) storageKey(key string) string { return c.prefix + key }

func (c *Cache[V]) setL1(key string, e l1.Entry[V]) bool {
	evicted, err := c.l1.Set(key, e)
	if err != nil {
		// drop any older copy so L1 does not serve it over the newer shared value
		c.l1.Delete(key)
		c.fail("set", key, &OpError{Op: "set", Key: key, Kind: ErrTooLarge, Err: fmt.Errorf("entry is %d bytes", e.Size)})
		return false
	}
	for _, k := range evicted {
		c.stats.evictions.Add(1)
		c.hooks.Evicted(k)
	}
	return true
}

// putShared compresses (maybe), wraps into an envelope and writes it. entry's
// compression fields are updated to what was stored.
func (c *Cache[V]) putShared(ctx context.Context, key string, payload []byte, entry *l1.Entry[V]) error {
	stored, compressed := payload, false
	if c.compressOn {
		stored, compressed = compress.Maybe(c.comp, payload, c.compressMin)
	}
	env := wire.Envelope{
		Format:         entry.Format,
		OriginalSize:   len(payload),
		CompressedSize: len(stored),
		CreatedAt:      entry.CreatedAt,
		TTL:            entry.TTL,
		Payload:        stored,
	}
	if compressed {
		env.Compression = c.comp.Name()
	}
	text, err := wire.Encode(env)
	if err != nil {
		return &OpError{Op: "set", Key: key, Kind: ErrSerialization, Err: err}
	}
	if err := c.backend.SetEx(ctx, c.storageKey(key), entry.TTL, text); err != nil {
		return backendErr("set", key, err)
	}

	entry.Compressed = compressed
	entry.CompressedSize = len(stored)
	if compressed {
		c.stats.compressedEntries.Add(1)
		c.stats.uncompressedBytes.Add(uint64(len(payload)))
		c.stats.compressedBytes.Add(uint64(len(stored)))
	}
	return nil
}

// fetch reads and decodes a shared-tier entry. Corrupt and expired entries
// are deleted.
func (c *Cache[V]) fetch(ctx context.Context, key string) (V, wire.Envelope, bool) {
	var zero V
	sk := c.storageKey(key)
	raw, ok, err := c.backend.Get(ctx, sk)
	if err != nil {
		c.fail("get", key, backendErr("get", key, err))
		return zero, wire.Envelope{}, false
	}
	if !ok {
		return zero, wire.Envelope{}, false
	}

	env, err := wire.Decode(raw)
	if err != nil {
		c.selfHeal(ctx, key, sk, "envelope", err)
		return zero, wire.Envelope{}, false
	}
	if c.expired(ctx, key, sk, env) {
		return zero, wire.Envelope{}, false
	}
	payload, err := c.decompress(env)
	if err != nil {
		c.selfHeal(ctx, key, sk, "compression", err)
		return zero, wire.Envelope{}, false
	}
	v, err := c.ser.Deserialize(payload, env.Format)
	if err != nil {
		c.selfHeal(ctx, key, sk, "value_decode", err)
		return zero, wire.Envelope{}, false
	}
	env.Payload = payload
	return v, env, true
}

func (c *Cache[V]) decompress(env wire.Envelope) ([]byte, error) {
	if !env.Compressed() {
		return env.Payload, nil
	}
	comp := c.comp
	if comp == nil || comp.Name() != env.Compression {
		var ok bool
		if comp, ok = compress.ByName(env.Compression); !ok {
			return nil, fmt.Errorf("unknown compression %q", env.Compression)
		}
	}
	return compress.Reverse(comp, env.Payload, true)
}

// expired reports whether env outlived its TTL. Stores that ignore per-key
// TTLs keep such entries around, so the stale copy is removed here.
func (c *Cache[V]) expired(ctx context.Context, key, storageKey string, env wire.Envelope) bool {
	d, ok := env.Remaining(c.now())
	if !ok || d > 0 {
		return false
	}
	if _, err := c.backend.Del(ctx, storageKey); err != nil {
		c.log.Debug("expired entry delete failed", Fields{"key": key, "err": err})
	}
	return true
}

func (c *Cache[V]) selfHeal(ctx context.Context, key, storageKey, reason string, cause error) {
	c.hooks.CorruptEntry(storageKey, reason)
	c.fail("get", key, &OpError{Op: "get", Key: key, Kind: ErrSerialization, Err: cause})
	if _, err := c.backend.Del(ctx, storageKey); err != nil {
		c.log.Debug("self-heal delete failed", Fields{"key": key, "err": err})
	}
}

// promote copies a shared hit into L1 for the time the shared entry has left.
// Entries written without expiry get the default TTL in L1 so other instances'
// updates become visible eventually.
func (c *Cache[V]) promote(key string, v V, env wire.Envelope) {
	now := c.now()
	ttl, ok := env.Remaining(now)
	if !ok {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return
	}
	c.setL1(key, l1.Entry[V]{
		Value:          v,
		TTL:            ttl,
		CreatedAt:      now,
		AccessedAt:     now,
		Format:         env.Format,
		Compressed:     env.Compressed(),
		OriginalSize:   env.OriginalSize,
		CompressedSize: env.CompressedSize,
		Size:           l1.EstimateSize(key, len(env.Payload)),
	})
}

func (c *Cache[V]) fail(op, key string, err error) {
	c.stats.errors.Add(1)
	c.hooks.OperationError(op, key, err)
	c.log.Warn("cache operation failed", Fields{"op": op, "key": key, "err": err})
}

// escapeGlob quotes glob metacharacters so the namespace prefix matches literally.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\{}`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]\{}`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
