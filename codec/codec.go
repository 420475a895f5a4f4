// Package codec turns cache values into byte payloads and back.
//
// Every payload is tagged with the Format that produced it so the read path never
// has to guess: the Serializer records the format actually used (which may differ
// from the requested one after a fallback) and decodes strictly by it.
package codec

import "errors"

// ErrSerialization is returned when a value cannot be encoded or decoded,
// even after format fallback.
var ErrSerialization = errors.New("codec: serialization failure")

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
