// Package wire defines the text envelope stored in the shared tier.
//
//	{"v":1,"f":"structured","z":"zstd","o":10000,"c":83,"t":1735689600000,"ttl":300000,"d":"<base64>"}
//
// The payload is base64 so the whole record stays valid text for stores whose
// values travel as strings.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/tiercache/codec"
)

const version = 1

var ErrCorrupt = errors.New("tiercache: corrupt entry")

// Envelope is the metadata + payload written under a namespaced key.
type Envelope struct {
	Format         codec.Format
	Compression    string // algorithm name; empty when not compressed
	OriginalSize   int
	CompressedSize int
	CreatedAt      time.Time
	TTL            time.Duration
	Payload        []byte // possibly compressed, never base64
}

func (e Envelope) Compressed() bool { return e.Compression != "" }

// Remaining returns the TTL left at now. ok is false when the envelope never expires.
func (e Envelope) Remaining(now time.Time) (d time.Duration, ok bool) {
	if e.TTL <= 0 {
		return 0, false
	}
	return e.CreatedAt.Add(e.TTL).Sub(now), true
}

type record struct {
	V   int    `json:"v"`
	F   string `json:"f"`
	Z   string `json:"z,omitempty"`
	O   int    `json:"o"`
	C   int    `json:"c"`
	T   int64  `json:"t"`
	TTL int64  `json:"ttl,omitempty"`
	D   string `json:"d"`
}

func Encode(e Envelope) (string, error) {
	b, err := json.Marshal(record{
		V:   version,
		F:   string(e.Format),
		Z:   e.Compression,
		O:   e.OriginalSize,
		C:   e.CompressedSize,
		T:   e.CreatedAt.UnixMilli(),
		TTL: e.TTL.Milliseconds(),
		D:   base64.StdEncoding.EncodeToString(e.Payload),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Decode(b []byte) (Envelope, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r.V != version {
		return Envelope{}, fmt.Errorf("%w: version %d", ErrCorrupt, r.V)
	}
	f, err := codec.ParseFormat(r.F)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	payload, err := base64.StdEncoding.DecodeString(r.D)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	if r.C != len(payload) {
		return Envelope{}, fmt.Errorf("%w: payload length %d, header says %d", ErrCorrupt, len(payload), r.C)
	}
	return Envelope{
		Format:         f,
		Compression:    r.Z,
		OriginalSize:   r.O,
		CompressedSize: r.C,
		CreatedAt:      time.UnixMilli(r.T),
		TTL:            time.Duration(r.TTL) * time.Millisecond,
		Payload:        payload,
	}, nil
}
