package tiercache

import (
	"time"

	"github.com/unkn0wn-root/tiercache/backend"
	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/compress"
)

// Level selects which tiers an operation touches.
type Level int

const (
	LevelBoth   Level = iota // default
	LevelL1                  // in-process only
	LevelShared              // backing store only
)

func (l Level) String() string {
	switch l {
	case LevelBoth:
		return "both"
	case LevelL1:
		return "l1"
	case LevelShared:
		return "shared"
	}
	return "unknown"
}

func (l Level) l1() bool     { return l == LevelBoth || l == LevelL1 }
func (l Level) shared() bool { return l == LevelBoth || l == LevelShared }

// Options configure a Cache. Only the embedded Config carries tunables;
// the rest are collaborators.
type Options[V any] struct {
	Config

	// Backend is the shared tier. nil => L1-only cache.
	Backend backend.Backend
	// OwnsBackend marks the backend as dedicated to this cache: Close closes it
	// and ClearAll flushes the whole store instead of scanning the namespace.
	OwnsBackend bool

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Compressor overrides Config.CompressionAlgorithm.
	Compressor compress.Compressor
	// Codecs add or replace per-format codecs (e.g. FormatProtobuf).
	Codecs map[codec.Format]codec.Codec[V]
	// DefaultFormat applies when Set has no WithFormat; "" => FormatStructured.
	DefaultFormat codec.Format

	// Clock drives TTL decisions; nil => time.Now.
	Clock func() time.Time
}

// Option tunes a single operation.
type Option func(*opConfig)

type opConfig struct {
	ttl    time.Duration
	ttlSet bool
	tags   []string
	deps   []string
	level  Level
	format codec.Format
}

// WithTTL sets the entry TTL, capped at MaxTTL. A zero or negative TTL is
// replaced by MaxTTL (24h unless configured), so every entry expires.
func WithTTL(d time.Duration) Option {
	return func(o *opConfig) { o.ttl, o.ttlSet = d, true }
}

// WithTags labels the entry for InvalidateByTags.
func WithTags(tags ...string) Option {
	return func(o *opConfig) { o.tags = append(o.tags, tags...) }
}

// WithDependencies records keys this entry derives from. Recorded only.
func WithDependencies(keys ...string) Option {
	return func(o *opConfig) { o.deps = append(o.deps, keys...) }
}

func WithLevel(l Level) Option {
	return func(o *opConfig) { o.level = l }
}

func WithFormat(f codec.Format) Option {
	return func(o *opConfig) { o.format = f }
}
