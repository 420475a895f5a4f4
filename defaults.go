package tiercache

import "time"

const (
	defaultTTL             = 5 * time.Minute
	defaultMaxTTL          = 24 * time.Hour
	defaultCompressionMin  = 1024
	defaultCompressionAlgo = "zstd"
	defaultL1MaxEntries    = 1000
	defaultL1MaxBytes      = 64 << 20
	defaultPrefix          = "tiercache:"
	defaultWarmConcurrency = 8
	defaultSlowOp          = 100 * time.Millisecond

	healthKeyPrefix = "__health__:"
	healthProbeTTL  = time.Minute
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
