package codec

import (
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type appointment struct {
	ID      string   `json:"id" msgpack:"id"`
	Barber  string   `json:"barber" msgpack:"barber"`
	Minutes int      `json:"minutes" msgpack:"minutes"`
	Extras  []string `json:"extras" msgpack:"extras"`
}

// noJSON refuses JSON encoding but is fine for msgpack.
type noJSON struct {
	Slot  int     `msgpack:"slot"`
	Score float64 `msgpack:"score"`
}

func (noJSON) MarshalJSON() ([]byte, error) { return nil, errors.New("not representable") }

func TestSerializeStructuredRoundTrip(t *testing.T) {
	s := NewSerializer[appointment]()
	in := appointment{ID: "a1", Barber: "joe", Minutes: 30, Extras: []string{"beard"}}

	b, f, err := s.Serialize(in, FormatStructured)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if f != FormatStructured {
		t.Fatalf("format=%q want structured", f)
	}
	out, err := s.Deserialize(b, f)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if out.ID != in.ID || out.Barber != in.Barber || out.Minutes != in.Minutes || len(out.Extras) != 1 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestSerializeFallsBackToBinary(t *testing.T) {
	s := NewSerializer[noJSON]()
	in := noJSON{Slot: 9, Score: math.Inf(1)}

	b, f, err := s.Serialize(in, FormatStructured)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if f != FormatBinary {
		t.Fatalf("expected fallback to binary, got %q", f)
	}
	out, err := s.Deserialize(b, f)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v want %+v", out, in)
	}
}

func TestSerializeNonStructuredDoesNotFallBack(t *testing.T) {
	s := NewSerializer[int]()
	if _, _, err := s.Serialize(5, FormatRaw); !errors.Is(err, ErrSerialization) {
		t.Fatalf("raw int should fail with ErrSerialization, got %v", err)
	}
}

func TestDeserializeUnknownFormat(t *testing.T) {
	s := NewSerializer[string]()
	if _, err := s.Deserialize([]byte("x"), Format("pickle")); !errors.Is(err, ErrSerialization) {
		t.Fatalf("want ErrSerialization, got %v", err)
	}
}

func TestRawStringAndBytes(t *testing.T) {
	ss := NewSerializer[string]()
	b, f, err := ss.Serialize("hello", FormatRaw)
	if err != nil || f != FormatRaw || string(b) != "hello" {
		t.Fatalf("raw string: b=%q f=%q err=%v", b, f, err)
	}
	if got, err := ss.Deserialize(b, f); err != nil || got != "hello" {
		t.Fatalf("raw string decode: %q %v", got, err)
	}

	bs := NewSerializer[[]byte]()
	b, _, err = bs.Serialize([]byte{1, 2, 3}, FormatRaw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := bs.Deserialize(b, FormatRaw)
	if err != nil || len(got) != 3 || got[2] != 3 {
		t.Fatalf("raw bytes decode: %v %v", got, err)
	}
}

func TestCBORRoundTrip(t *testing.T) {
	s := NewSerializer[appointment]()
	in := appointment{ID: "c1", Barber: "ann", Minutes: 45}
	b, f, err := s.Serialize(in, FormatCBOR)
	if err != nil || f != FormatCBOR {
		t.Fatalf("Serialize cbor: f=%q err=%v", f, err)
	}
	out, err := s.Deserialize(b, f)
	if err != nil || out.ID != "c1" || out.Minutes != 45 {
		t.Fatalf("cbor decode: %+v %v", out, err)
	}
}

func TestProtobufRegistered(t *testing.T) {
	s := NewSerializer[*wrapperspb.StringValue]()
	if _, _, err := s.Serialize(wrapperspb.String("x"), FormatProtobuf); !errors.Is(err, ErrSerialization) {
		t.Fatalf("protobuf should be unregistered by default, got %v", err)
	}
	s.Register(FormatProtobuf, NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }))

	in := wrapperspb.String("fade + lineup")
	b, f, err := s.Serialize(in, FormatProtobuf)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	out, err := s.Deserialize(b, f)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !proto.Equal(in, out) {
		t.Fatalf("got %v want %v", out, in)
	}
}

func TestLimitCodec(t *testing.T) {
	c := LimitCodec[string]{Inner: Raw[string]{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("want ErrPayloadTooLarge, got %v", err)
	}
	if v, err := c.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("within limit: %q %v", v, err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("binary"); err != nil || f != FormatBinary {
		t.Fatalf("ParseFormat(binary) = %q, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
