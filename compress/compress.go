// Package compress provides the payload compressors used by the shared tier and
// the threshold rules deciding when a payload is worth compressing.
package compress

import (
	"fmt"
	"sync"
)

// Compressor is a symmetric byte transform. Implementations must be safe for
// concurrent use.
type Compressor interface {
	Name() string
	Compress(b []byte) ([]byte, error)
	Decompress(b []byte) ([]byte, error)
}

// Maybe compresses b with c when len(b) >= threshold and the result is strictly
// smaller. Otherwise b is returned unchanged with compressed=false. Compressor
// errors are treated as "not worth it".
func Maybe(c Compressor, b []byte, threshold int) (out []byte, compressed bool) {
	if c == nil || len(b) < threshold {
		return b, false
	}
	z, err := c.Compress(b)
	if err != nil || len(z) >= len(b) {
		return b, false
	}
	return z, true
}

// Reverse undoes Maybe. It is a no-op when compressed is false.
func Reverse(c Compressor, b []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return b, nil
	}
	if c == nil {
		return nil, fmt.Errorf("compress: payload is compressed but no compressor given")
	}
	return c.Decompress(b)
}

var (
	regMu    sync.RWMutex
	registry = map[string]Compressor{}
)

// Register makes c resolvable by name, so readers can decode payloads written
// with an algorithm other than their own default.
func Register(c Compressor) {
	regMu.Lock()
	registry[c.Name()] = c
	regMu.Unlock()
}

// ByName returns the registered compressor with the given name.
func ByName(name string) (Compressor, bool) {
	regMu.RLock()
	c, ok := registry[name]
	regMu.RUnlock()
	return c, ok
}

func init() {
	Register(NewZstd())
	Register(S2{})
	Register(Gzip{})
}
