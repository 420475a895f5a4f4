// Package backend defines the shared-tier storage protocol used by tiercache.
//
// Values are opaque text envelopes produced by tiercache; implementations must
// return exactly the bytes previously stored (no transcoding). Keys arrive already
// namespaced. Implementations must be safe for concurrent use.
//
// The backing store is shared and externally owned: tiercache only touches keys
// under its own namespace prefix, except FlushAll which it calls only for a
// backend the cache owns.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Backend is the narrow key-value protocol the shared tier requires.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss;
	// (nil, false, err) on transport/server failure.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetEx stores value with the given TTL. ttl <= 0 means no expiry.
	SetEx(ctx context.Context, key string, ttl time.Duration, value string) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Keys lists keys matching a Redis glob: *, ?, [abc], [a-z], [^abc] and
	// backslash escapes.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// FlushAll removes every key in the store.
	FlushAll(ctx context.Context) error

	// Close releases resources owned by the backend.
	Close(ctx context.Context) error
}

// Pinger is implemented by backends that can report reachability cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrClosed is returned by in-process backends after Close.
var ErrClosed = errors.New("backend: closed")

// Glob compiles a Redis glob for backends that match keys in process.
// No separators are configured, so '*' also crosses ':' like in Redis.
// Braces are literal as in Redis, and "[!" is rejected because Redis reads
// it as a class containing '!' rather than a negation.
func Glob(pattern string) (func(string) bool, error) {
	p, err := fromRedis(pattern)
	if err != nil {
		return nil, err
	}
	g, err := glob.Compile(p)
	if err != nil {
		return nil, err
	}
	return g.Match, nil
}

// fromRedis rewrites Redis glob syntax into gobwas/glob syntax.
func fromRedis(pattern string) (string, error) {
	rs := []rune(pattern)
	var b strings.Builder
	inClass := false
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\':
			b.WriteRune(r)
			if i+1 < len(rs) {
				i++
				b.WriteRune(rs[i])
			}
		case inClass:
			if r == ']' {
				inClass = false
			}
			b.WriteRune(r)
		case r == '[':
			inClass = true
			b.WriteRune(r)
			if i+1 < len(rs) {
				switch rs[i+1] {
				case '^':
					b.WriteRune('!')
					i++
				case '!':
					return "", fmt.Errorf("glob %q: negate a class with [^...]", pattern)
				}
			}
		case r == '{' || r == '}' || r == ',':
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}
