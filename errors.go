package tiercache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/internal/l1"
)

var (
	// ErrSerialization: a value could not be encoded/decoded even after format fallback.
	ErrSerialization = codec.ErrSerialization
	// ErrBackendUnavailable: the shared store failed (network, server, closed client).
	ErrBackendUnavailable = errors.New("tiercache: backend unavailable")
	// ErrConfiguration: invalid limits at construction.
	ErrConfiguration = errors.New("tiercache: invalid configuration")
	// ErrNoBackend: a shared-tier operation was requested on an L1-only cache.
	ErrNoBackend = errors.New("tiercache: no backend configured")
	// ErrTooLarge: a single entry is bigger than l1_max_memory_bytes.
	ErrTooLarge = l1.ErrTooLarge
)

// ConfigError is returned by New and Config.Validate.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tiercache: config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// OpError describes a failure swallowed at the Cache boundary. It reaches
// Hooks.OperationError and logs, never the caller of Get/Set/...
type OpError struct {
	Op   string
	Key  string
	Kind error // ErrBackendUnavailable, ErrSerialization, ...
	Err  error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("tiercache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tiercache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func backendErr(op, key string, err error) error {
	return &OpError{Op: op, Key: key, Kind: ErrBackendUnavailable, Err: err}
}
