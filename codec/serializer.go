package codec

import (
	"fmt"
	"sync"
)

// Serializer dispatches to a Codec per Format.
//
// Structured (JSON) is tried first when requested; if the value has no JSON
// representation it is transparently re-encoded with the binary codec and the
// returned Format says so. Callers must persist that returned Format next to the
// bytes and pass it back to Deserialize.
type Serializer[V any] struct {
	mu     sync.RWMutex
	codecs map[Format]Codec[V]
}

// NewSerializer returns a Serializer with JSON, msgpack, CBOR and raw codecs.
// Protobuf must be registered explicitly.
func NewSerializer[V any]() *Serializer[V] {
	return &Serializer[V]{
		codecs: map[Format]Codec[V]{
			FormatStructured: JSON[V]{},
			FormatBinary:     Msgpack[V]{},
			FormatCBOR:       MustCBOR[V](false),
			FormatRaw:        Raw[V]{},
		},
	}
}

// Register installs or replaces the codec for f.
func (s *Serializer[V]) Register(f Format, c Codec[V]) {
	s.mu.Lock()
	s.codecs[f] = c
	s.mu.Unlock()
}

func (s *Serializer[V]) codec(f Format) (Codec[V], bool) {
	s.mu.RLock()
	c, ok := s.codecs[f]
	s.mu.RUnlock()
	return c, ok
}

// Serialize encodes v as f and returns the format actually used.
func (s *Serializer[V]) Serialize(v V, f Format) ([]byte, Format, error) {
	c, ok := s.codec(f)
	if !ok {
		return nil, "", fmt.Errorf("%w: no codec for format %q", ErrSerialization, f)
	}
	b, err := c.Encode(v)
	if err == nil {
		return b, f, nil
	}
	if f != FormatStructured {
		return nil, "", fmt.Errorf("%w: %s encode: %v", ErrSerialization, f, err)
	}

	bin, ok := s.codec(FormatBinary)
	if !ok {
		return nil, "", fmt.Errorf("%w: structured encode: %v", ErrSerialization, err)
	}
	b, berr := bin.Encode(v)
	if berr != nil {
		return nil, "", fmt.Errorf("%w: structured encode: %v; binary encode: %v", ErrSerialization, err, berr)
	}
	return b, FormatBinary, nil
}

// Deserialize decodes b using the recorded format f. A structured payload that
// fails to decode is retried as binary.
func (s *Serializer[V]) Deserialize(b []byte, f Format) (V, error) {
	var zero V
	c, ok := s.codec(f)
	if !ok {
		return zero, fmt.Errorf("%w: no codec for format %q", ErrSerialization, f)
	}
	v, err := c.Decode(b)
	if err == nil {
		return v, nil
	}
	if f != FormatStructured {
		return zero, fmt.Errorf("%w: %s decode: %v", ErrSerialization, f, err)
	}
	if bin, ok := s.codec(FormatBinary); ok {
		if v, berr := bin.Decode(b); berr == nil {
			return v, nil
		}
	}
	return zero, fmt.Errorf("%w: structured decode: %v", ErrSerialization, err)
}
