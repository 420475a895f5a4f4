package tiercache

import "sync"

// tagIndex maps tag -> set of keys. It lives only in the writing process and is
// not replicated to the shared tier. Keys removed by expiry or pattern
// invalidation are left in place; a later InvalidateByTags finds them already
// gone.
type tagIndex struct {
	mu sync.Mutex
	m  map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{m: make(map[string]map[string]struct{})}
}

func (t *tagIndex) add(key string, tags []string) {
	if len(tags) == 0 {
		return
	}
	t.mu.Lock()
	for _, tag := range tags {
		set, ok := t.m[tag]
		if !ok {
			set = make(map[string]struct{})
			t.m[tag] = set
		}
		set[key] = struct{}{}
	}
	t.mu.Unlock()
}

// take returns the union of keys under tags and drops those tags entirely.
func (t *tagIndex) take(tags []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range tags {
		for k := range t.m[tag] {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		delete(t.m, tag)
	}
	return out
}

func (t *tagIndex) reset() {
	t.mu.Lock()
	t.m = make(map[string]map[string]struct{})
	t.mu.Unlock()
}

func (t *tagIndex) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
