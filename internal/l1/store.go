// Package l1 implements the in-process tier: a map bounded by both entry count
// and estimated bytes, evicting in strict least-recently-used order.
package l1

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrTooLarge is returned by Set when a single entry exceeds the byte bound.
var ErrTooLarge = errors.New("l1: entry larger than memory bound")

// Store is safe for concurrent use. Map, recency list and byte counter are
// guarded by one mutex so eviction + insert + recency update happen as a unit.
// Reads take the same lock because they reorder the list.
type Store[V any] struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	bytes    int64
	maxCount int
	maxBytes int64
	now      func() time.Time
}

func New[V any](maxEntries int, maxBytes int64, now func() time.Time) *Store[V] {
	if now == nil {
		now = time.Now
	}
	return &Store[V]{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		maxCount: maxEntries,
		maxBytes: maxBytes,
		now:      now,
	}
}

// Get returns a copy of the entry and marks it most recently used.
// Expired entries are removed and reported as absent.
func (s *Store[V]) Get(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return Entry[V]{}, false
	}
	e := el.Value.(*Entry[V])
	now := s.now()
	if e.Expired(now) {
		s.removeElement(el)
		return Entry[V]{}, false
	}
	e.AccessCount++
	if now.After(e.AccessedAt) {
		e.AccessedAt = now
	}
	s.order.MoveToFront(el)
	return *e, true
}

// Contains reports presence of a live entry without touching recency.
func (s *Store[V]) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return false
	}
	if el.Value.(*Entry[V]).Expired(s.now()) {
		s.removeElement(el)
		return false
	}
	return true
}

// Set inserts or replaces e under key and returns the keys evicted to make room.
func (s *Store[V]) Set(key string, e Entry[V]) ([]string, error) {
	if e.Size > s.maxBytes {
		return nil, ErrTooLarge
	}
	e.Key = key
	if e.AccessedAt.Before(e.CreatedAt) {
		e.AccessedAt = e.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.removeElement(el)
	}

	var evicted []string
	for s.order.Len() > 0 && (s.order.Len() >= s.maxCount || s.bytes+e.Size > s.maxBytes) {
		tail := s.order.Back()
		evicted = append(evicted, tail.Value.(*Entry[V]).Key)
		s.removeElement(tail)
	}

	ent := e
	s.items[key] = s.order.PushFront(&ent)
	s.bytes += ent.Size
	return evicted, nil
}

// Delete removes key and reports whether it was present.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeElement(el)
	return true
}

// DeleteMatching removes every key for which match returns true.
func (s *Store[V]) DeleteMatching(match func(string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, el := range s.items {
		if match(k) {
			s.removeElement(el)
			n++
		}
	}
	return n
}

// Keys returns the resident keys from most to least recently used.
// Expired-but-unread entries are included.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Entry[V]).Key)
	}
	return out
}

func (s *Store[V]) Clear() {
	s.mu.Lock()
	s.items = make(map[string]*list.Element)
	s.order.Init()
	s.bytes = 0
	s.mu.Unlock()
}

func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Bytes is the sum of the resident entries' estimated sizes.
func (s *Store[V]) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// caller holds mu
func (s *Store[V]) removeElement(el *list.Element) {
	e := s.order.Remove(el).(*Entry[V])
	delete(s.items, e.Key)
	s.bytes -= e.Size
}

// Peek returns a copy of a live entry without touching recency or access counts.
func (s *Store[V]) Peek(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return Entry[V]{}, false
	}
	e := el.Value.(*Entry[V])
	if e.Expired(s.now()) {
		return Entry[V]{}, false
	}
	return *e, true
}
