// Package memory is an in-process backend.Backend. It backs tests and
// single-instance deployments where a network store is not worth running.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/tiercache/backend"
)

type item struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Memory struct {
	mu     sync.RWMutex
	m      map[string]item
	now    func() time.Time
	closed bool
}

var _ backend.Backend = (*Memory)(nil)

type Option func(*Memory)

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func New(opts ...Option) *Memory {
	m := &Memory{m: make(map[string]item), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// caller holds at least a read lock
func (m *Memory) live(key string) (item, bool) {
	it, ok := m.m[key]
	if !ok {
		return item{}, false
	}
	if !it.exp.IsZero() && m.now().After(it.exp) {
		return item{}, false
	}
	return it, true
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, backend.ErrClosed
	}
	it, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(it.v))
	copy(out, it.v)
	return out, true, nil
}

func (m *Memory) SetEx(_ context.Context, key string, ttl time.Duration, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return backend.ErrClosed
	}
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.m[key] = item{v: []byte(value), exp: exp}
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, backend.ErrClosed
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.live(k); ok {
			n++
		}
		delete(m.m, k)
	}
	return n, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, backend.ErrClosed
	}
	_, ok := m.live(key)
	return ok, nil
}

func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	match, err := backend.Glob(pattern)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, backend.ErrClosed
	}
	var out []string
	for k := range m.m {
		if _, ok := m.live(k); ok && match(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *Memory) FlushAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return backend.ErrClosed
	}
	m.m = make(map[string]item)
	return nil
}

// Len counts stored keys, including expired ones not yet overwritten.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.m = nil
	m.mu.Unlock()
	return nil
}
