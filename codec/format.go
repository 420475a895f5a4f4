package codec

import "fmt"

// Format identifies the encoding of a stored payload.
type Format string

const (
	FormatStructured Format = "structured" // JSON
	FormatBinary     Format = "binary"     // msgpack
	FormatCBOR       Format = "cbor"
	FormatProtobuf   Format = "protobuf"
	FormatRaw        Format = "raw" // string / []byte pass-through
)

func (f Format) String() string { return string(f) }

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case FormatStructured, FormatBinary, FormatCBOR, FormatProtobuf, FormatRaw:
		return true
	}
	return false
}

// ParseFormat converts a recorded discriminator back into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("codec: unknown format %q", s)
	}
	return f, nil
}
