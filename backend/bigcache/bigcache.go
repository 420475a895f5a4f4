// Package bigcache adapts allegro/bigcache to backend.Backend.
//
// BigCache has one global life window and no per-entry TTL: every entry lives for
// LifeWindow regardless of the TTL passed to SetEx. Pick a LifeWindow no longer
// than the cache's MaxTTL.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/tiercache/backend"
)

type Backend struct {
	c *bc.BigCache
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Backend, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c}, nil
}

func (p *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Backend) SetEx(_ context.Context, key string, _ time.Duration, value string) error {
	return p.c.Set(key, []byte(value))
}

func (p *Backend) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		err := p.c.Delete(k)
		switch {
		case err == nil:
			n++
		case errors.Is(err, bc.ErrEntryNotFound):
		default:
			return n, err
		}
	}
	return n, nil
}

func (p *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Backend) Keys(_ context.Context, pattern string) ([]string, error) {
	match, err := backend.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry removed while iterating
			continue
		}
		if match(e.Key()) {
			out = append(out, e.Key())
		}
	}
	return out, nil
}

func (p *Backend) FlushAll(_ context.Context) error {
	return p.c.Reset()
}

func (p *Backend) Close(_ context.Context) error {
	return p.c.Close()
}
