package tiercache

import (
	"time"

	"github.com/unkn0wn-root/tiercache/codec"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on hot paths.
// Wrap with hooks/async when in doubt.
type Hooks interface {
	// A runtime failure was swallowed. err is an *OpError.
	OperationError(op, key string, err error)

	// An L1 entry was evicted by capacity pressure.
	Evicted(key string)

	// A tiered operation took longer than the slow-op threshold.
	SlowOperation(op, key string, d time.Duration)

	// A shared-tier entry could not be decoded and was deleted.
	// reason ∈ {"envelope", "compression", "value_decode"}
	CorruptEntry(storageKey, reason string)

	// Set could not use the requested format and stored another one.
	FormatFallback(key string, from, to codec.Format)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) OperationError(string, string, error)             {}
func (NopHooks) Evicted(string)                                   {}
func (NopHooks) SlowOperation(string, string, time.Duration)      {}
func (NopHooks) CorruptEntry(string, string)                      {}
func (NopHooks) FormatFallback(string, codec.Format, codec.Format) {}
