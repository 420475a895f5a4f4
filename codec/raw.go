package codec

import "fmt"

// Raw passes string and []byte values through unchanged. Any other V fails to
// encode, which makes the Serializer report ErrSerialization instead of storing
// something it cannot give back.
type Raw[V any] struct{}

var _ Codec[string] = Raw[string]{}

func (Raw[V]) Encode(v V) ([]byte, error) {
	switch x := any(v).(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("raw codec: unsupported type %T", v)
}

func (Raw[V]) Decode(b []byte) (V, error) {
	var v V
	switch p := any(&v).(type) {
	case *[]byte:
		*p = append([]byte(nil), b...)
	case *string:
		*p = string(b)
	default:
		return v, fmt.Errorf("raw codec: unsupported type %T", v)
	}
	return v, nil
}
