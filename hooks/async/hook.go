// Package asynchook moves tiercache hook calls off the hot path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{CorruptEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := tiercache.New[User](tiercache.Options[User]{
//	    Backend: redisBackend,
//	    Hooks:   hooks, // or raw if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/codec"
)

// Hooks forwards events to inner from a fixed worker pool. When the queue is
// full the event is dropped and counted.
type Hooks struct {
	inner   tiercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards sends against close(q)
	closed  bool
	dropped atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(inner tiercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) OperationError(op, key string, err error) {
	h.try(func() { h.inner.OperationError(op, key, err) })
}
func (h *Hooks) Evicted(key string) { h.try(func() { h.inner.Evicted(key) }) }
func (h *Hooks) SlowOperation(op, key string, d time.Duration) {
	h.try(func() { h.inner.SlowOperation(op, key, d) })
}
func (h *Hooks) CorruptEntry(storageKey, reason string) {
	h.try(func() { h.inner.CorruptEntry(storageKey, reason) })
}
func (h *Hooks) FormatFallback(key string, from, to codec.Format) {
	h.try(func() { h.inner.FormatFallback(key, from, to) })
}
