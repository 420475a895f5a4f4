// Package sloghooks logs tiercache hook events with log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/codec"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	EvictEvery   uint64
	CorruptEvery uint64
	ErrorEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictCtr   atomic.Uint64
	corruptCtr atomic.Uint64
	errorCtr   atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) OperationError(op, key string, err error) {
	if h.l == nil || !sample(h.opts.ErrorEvery, &h.errorCtr) {
		return
	}
	h.l.Warn("tiercache.operation_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Evicted(key string) {
	if h.l == nil || !sample(h.opts.EvictEvery, &h.evictCtr) {
		return
	}
	h.l.Debug("tiercache.evicted", "key", h.redact(key))
}

func (h *Hooks) SlowOperation(op, key string, d time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Info("tiercache.slow_operation",
		"op", op,
		"key", h.redact(key),
		"took", d)
}

func (h *Hooks) CorruptEntry(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.CorruptEvery, &h.corruptCtr) {
		return
	}
	h.l.Warn("tiercache.corrupt_entry",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) FormatFallback(key string, from, to codec.Format) {
	if h.l == nil {
		return
	}
	h.l.Debug("tiercache.format_fallback",
		"key", h.redact(key),
		"from", from.String(),
		"to", to.String())
}
