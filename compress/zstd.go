package compress

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Zstd compresses with klauspost/compress/zstd. Encoders and decoders are
// expensive to build, so one of each is created lazily and shared; both are
// documented as safe for concurrent EncodeAll/DecodeAll.
type Zstd struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

func NewZstd() *Zstd { return &Zstd{} }

func (z *Zstd) Name() string { return "zstd" }

func (z *Zstd) init() error {
	z.once.Do(func() {
		z.enc, z.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if z.err != nil {
			return
		}
		z.dec, z.err = zstd.NewReader(nil)
	})
	return z.err
}

func (z *Zstd) Compress(b []byte) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
}

func (z *Zstd) Decompress(b []byte) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}
	return z.dec.DecodeAll(b, nil)
}
