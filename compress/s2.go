package compress

import "github.com/klauspost/compress/s2"

// S2 trades ratio for speed. The zero value is ready to use.
type S2 struct{}

func (S2) Name() string { return "s2" }

func (S2) Compress(b []byte) ([]byte, error) { return s2.Encode(nil, b), nil }

func (S2) Decompress(b []byte) ([]byte, error) { return s2.Decode(nil, b) }
