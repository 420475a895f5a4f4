// Package ristretto adapts dgraph-io/ristretto to backend.Backend.
//
// Ristretto may refuse writes under admission pressure and cannot enumerate its
// keys, so the backend keeps a side registry of written keys for Keys. Entries
// evicted by ristretto are pruned from the registry lazily.
package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/tiercache/backend"
)

// ErrRejected is returned by SetEx when ristretto drops the write.
var ErrRejected = errors.New("ristretto: write rejected")

type Backend struct {
	c *rc.Cache

	mu   sync.Mutex
	keys map[string]struct{}
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Backend{c: c, keys: make(map[string]struct{})}, nil
}

func (p *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// SetEx charges the value length as cost and waits for the write buffer to drain
// so a following Get observes it.
func (p *Backend) SetEx(_ context.Context, key string, ttl time.Duration, value string) error {
	if ttl < 0 {
		ttl = 0
	}
	if !p.c.SetWithTTL(key, []byte(value), int64(len(value)), ttl) {
		return ErrRejected
	}
	p.c.Wait()
	p.mu.Lock()
	p.keys[key] = struct{}{}
	p.mu.Unlock()
	return nil
}

func (p *Backend) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := p.c.Get(k); ok {
			n++
		}
		p.c.Del(k)
	}
	p.mu.Lock()
	for _, k := range keys {
		delete(p.keys, k)
	}
	p.mu.Unlock()
	return n, nil
}

func (p *Backend) Exists(_ context.Context, key string) (bool, error) {
	_, ok := p.c.Get(key)
	return ok, nil
}

func (p *Backend) Keys(_ context.Context, pattern string) ([]string, error) {
	match, err := backend.Glob(pattern)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for k := range p.keys {
		if _, ok := p.c.Get(k); !ok {
			delete(p.keys, k)
			continue
		}
		if match(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (p *Backend) FlushAll(_ context.Context) error {
	p.c.Clear()
	p.mu.Lock()
	p.keys = make(map[string]struct{})
	p.mu.Unlock()
	return nil
}

func (p *Backend) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters (nil unless Config.Metrics).
func (p *Backend) Metrics() *rc.Metrics { return p.c.Metrics }
