package asynchook

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/codec"
)

type counting struct {
	tiercache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (c *counting) record(s string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.events = append(c.events, s)
	c.mu.Unlock()
}

func (c *counting) OperationError(op, _ string, _ error)        { c.record("err:" + op) }
func (c *counting) Evicted(key string)                          { c.record("evict:" + key) }
func (c *counting) CorruptEntry(_, reason string)               { c.record("corrupt:" + reason) }
func (c *counting) FormatFallback(_ string, _, to codec.Format) { c.record("fallback:" + to.String()) }

func TestForwardsAllEvents(t *testing.T) {
	inner := &counting{}
	h := New(inner, 2, 16)

	h.OperationError("get", "k", errors.New("x"))
	h.Evicted("a")
	h.SlowOperation("set", "k", time.Second)
	h.CorruptEntry("ns:k", "envelope")
	h.FormatFallback("k", codec.FormatStructured, codec.FormatBinary)
	h.Close()

	if len(inner.events) != 4 {
		t.Fatalf("events = %v", inner.events)
	}
	if h.Dropped() != 0 {
		t.Fatalf("Dropped = %d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &counting{block: make(chan struct{})}
	h := New(inner, 1, 1)

	for i := 0; i < 10; i++ {
		h.Evicted("k")
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a blocked worker and queue of 1")
	}
	close(inner.block)
	h.Close()

	h.Evicted("late")
	if got := len(inner.events) + int(h.Dropped()); got != 11 {
		t.Fatalf("delivered+dropped = %d, want 11", got)
	}
}

func TestCloseWhileSending(t *testing.T) {
	inner := &counting{}
	h := New(inner, 2, 8)

	const senders, each = 8, 200
	var sent atomic.Int64
	var start, wg sync.WaitGroup
	start.Add(1)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			for j := 0; j < each; j++ {
				h.Evicted("k")
				sent.Add(1)
			}
		}()
	}
	start.Done()
	h.Close()
	wg.Wait()

	inner.mu.Lock()
	delivered := len(inner.events)
	inner.mu.Unlock()
	if got := int64(delivered) + int64(h.Dropped()); got != sent.Load() {
		t.Fatalf("delivered %d + dropped %d != sent %d", delivered, h.Dropped(), sent.Load())
	}
}
