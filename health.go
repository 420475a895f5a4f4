package tiercache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/tiercache/backend"
	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/compress"
	"github.com/unkn0wn-root/tiercache/internal/wire"
)

type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// BackendInfo describes the configured shared tier.
type BackendInfo struct {
	Type       string `json:"type"` // Go type, "" when none
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	Error      string `json:"error,omitempty"`
}

// HealthReport is the result of one probe round.
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Set       bool          `json:"set"`
	Get       bool          `json:"get"`
	Delete    bool          `json:"delete"`
	Backend   BackendInfo   `json:"backend"`
	Stats     Stats         `json:"stats"`
	CheckedAt time.Time     `json:"checked_at"`
	Took      time.Duration `json:"took"`
	Error     string        `json:"error,omitempty"`
}

// HealthCheck writes, reads back and deletes a throwaway entry through the
// same byte path Set and Get use. It never panics and never returns an error;
// failures are reported in the HealthReport.
func (c *Cache[V]) HealthCheck(ctx context.Context) (rep HealthReport) {
	start := time.Now()
	rep.CheckedAt = c.now()
	defer func() {
		if r := recover(); r != nil {
			rep.Status = Unhealthy
			rep.Error = fmt.Sprintf("panic: %v", r)
			c.log.Error("health check panicked", Fields{"panic": r})
		}
		rep.Stats = c.Stats()
		rep.Took = time.Since(start)
	}()

	rep.Backend = c.backendInfo(ctx)

	var err error
	if c.backend != nil {
		rep.Set, rep.Get, rep.Delete, err = c.probeShared(ctx)
	} else {
		rep.Set, rep.Get, rep.Delete, err = c.probeLocal()
	}
	if err != nil {
		rep.Error = err.Error()
	}

	switch n := count(rep.Set, rep.Get, rep.Delete); n {
	case 3:
		rep.Status = Healthy
	case 0:
		rep.Status = Unhealthy
	default:
		rep.Status = Degraded
	}
	if rep.Status != Healthy {
		c.log.Warn("health check failed", Fields{"status": rep.Status, "err": rep.Error})
	}
	return rep
}

func (c *Cache[V]) backendInfo(ctx context.Context) BackendInfo {
	if c.backend == nil {
		return BackendInfo{}
	}
	info := BackendInfo{Type: fmt.Sprintf("%T", c.backend), Configured: true, Reachable: true}
	if p, ok := c.backend.(backend.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			info.Reachable = false
			info.Error = err.Error()
		}
	}
	return info
}

func (c *Cache[V]) probeShared(ctx context.Context) (set, get, del bool, err error) {
	key := c.storageKey(healthKeyPrefix + uuid.NewString())
	want, text, err := c.probeEnvelope()
	if err != nil {
		return false, false, false, err
	}

	if err := c.backend.SetEx(ctx, key, healthProbeTTL, text); err != nil {
		return false, false, false, fmt.Errorf("set: %w", err)
	}
	set = true

	var errs []error
	raw, ok, gerr := c.backend.Get(ctx, key)
	switch {
	case gerr != nil:
		errs = append(errs, fmt.Errorf("get: %w", gerr))
	case !ok:
		errs = append(errs, errors.New("get: probe entry missing"))
	default:
		if gerr = c.checkProbe(raw, want); gerr != nil {
			errs = append(errs, fmt.Errorf("get: %w", gerr))
		} else {
			get = true
		}
	}

	n, derr := c.backend.Del(ctx, key)
	switch {
	case derr != nil:
		errs = append(errs, fmt.Errorf("delete: %w", derr))
	case n != 1:
		errs = append(errs, fmt.Errorf("delete: removed %d keys", n))
	default:
		del = true
	}
	return set, get, del, errors.Join(errs...)
}

// probeLocal exercises the encode path without any store.
func (c *Cache[V]) probeLocal() (set, get, del bool, err error) {
	want, text, err := c.probeEnvelope()
	if err != nil {
		return false, false, false, err
	}
	if err := c.checkProbe([]byte(text), want); err != nil {
		return true, false, false, err
	}
	return true, true, true, nil
}

func (c *Cache[V]) probeEnvelope() (payload []byte, text string, err error) {
	payload = bytes.Repeat([]byte(uuid.NewString()), 64)
	stored, compressed := payload, false
	if c.compressOn {
		stored, compressed = compress.Maybe(c.comp, payload, c.compressMin)
	}
	env := wire.Envelope{
		Format:         codec.FormatRaw,
		OriginalSize:   len(payload),
		CompressedSize: len(stored),
		CreatedAt:      c.now(),
		TTL:            healthProbeTTL,
		Payload:        stored,
	}
	if compressed {
		env.Compression = c.comp.Name()
	}
	text, err = wire.Encode(env)
	return payload, text, err
}

func (c *Cache[V]) checkProbe(raw, want []byte) error {
	env, err := wire.Decode(raw)
	if err != nil {
		return err
	}
	got, err := c.decompress(env)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return errors.New("probe payload mismatch")
	}
	return nil
}

func count(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
