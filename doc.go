// Package tiercache implements a two-level cache: a bounded in-process LRU tier
// (L1) in front of a shared, network-backed key-value store (the shared tier).
//
// Components:
//   - Cache[V]: the orchestrator. Reads try L1, then the shared tier, promoting
//     shared hits into L1. Writes go to the tiers selected by Level.
//   - codec.Serializer[V]: Format-tagged (de)serialization with JSON -> msgpack fallback.
//   - compress.Compressor: optional payload compression above a size threshold.
//   - backend.Backend: the store protocol (Redis, in-memory, BigCache, Ristretto).
//   - Tag index: process-local tag -> keys map for group invalidation.
//
// Failures inside the cache never reach the caller: reads degrade to misses and
// writes report false. Errors are logged, counted in Stats and passed to Hooks.
// HealthCheck is the one place failure state is reported explicitly.
//
// Shared-tier keys:
//
//	<prefix><key>        - values, stored as wire envelopes (JSON text, base64 payload)
//	<prefix>__health__:* - short-lived health probe keys
//
// Usage:
//
//	c, err := tiercache.New[Appointment](tiercache.Options[Appointment]{
//	    Config:  tiercache.Config{NamespacePrefix: "barber:appt:"},
//	    Backend: redisBackend,
//	})
//	c.Set(ctx, "appt:42", appt, tiercache.WithTTL(10*time.Minute), tiercache.WithTags("shop:7"))
//	v, ok := c.Get(ctx, "appt:42")
//	c.InvalidateByTags(ctx, "shop:7")
package tiercache
