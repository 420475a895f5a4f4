package tiercache

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"time"

	"github.com/unkn0wn-root/tiercache/internal/util"
)

// MemoOptions configure Memoize. All fields are optional.
type MemoOptions[A any] struct {
	// Name identifies the function in cache keys; defaults to its runtime name.
	// Set it for closures, which all share generated names.
	Name string
	TTL  time.Duration // 0 => cache default
	Tags []string
	// Level defaults to LevelBoth.
	Level Level
	// KeyFunc replaces the default argument hash. The result is used verbatim
	// after the "memo:<name>:" prefix.
	KeyFunc func(A) string
}

// Memoize wraps fn so results are served from c. Concurrent misses for the same
// key share one call of fn. Errors from fn are returned and never cached.
func Memoize[A, R any](c *Cache[R], fn func(context.Context, A) (R, error), opts MemoOptions[A]) func(context.Context, A) (R, error) {
	name := opts.Name
	if name == "" {
		name = runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	}

	setOpts := []Option{WithLevel(opts.Level)}
	if opts.TTL != 0 {
		setOpts = append(setOpts, WithTTL(opts.TTL))
	}
	if len(opts.Tags) > 0 {
		setOpts = append(setOpts, WithTags(opts.Tags...))
	}

	keyOf := func(a A) string {
		if opts.KeyFunc != nil {
			return "memo:" + name + ":" + opts.KeyFunc(a)
		}
		return util.HashKey("memo:"+name, fmt.Sprintf("%#v", a))
	}

	return func(ctx context.Context, a A) (R, error) {
		key := keyOf(a)
		if v, ok := c.Get(ctx, key, WithLevel(opts.Level)); ok {
			return v, nil
		}

		res, err, _ := c.flight.Do(key, func() (any, error) {
			v, err := fn(ctx, a)
			if err != nil {
				return v, err
			}
			c.Set(ctx, key, v, setOpts...)
			return v, nil
		})
		r, _ := res.(R)
		return r, err
	}
}
