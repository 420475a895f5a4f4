package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip is interoperable with anything that speaks RFC 1952. The zero value uses
// the default level.
type Gzip struct {
	Level int
}

func (Gzip) Name() string { return "gzip" }

func (g Gzip) Compress(b []byte) ([]byte, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
