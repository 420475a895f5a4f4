package codec

import "google.golang.org/protobuf/proto"

// Protobuf encodes proto messages. It is not part of the default codec table
// because decoding needs a constructor for the concrete message; register it with
// Serializer.Register(FormatProtobuf, NewProtobuf(...)).
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *pb.Appointment { return &pb.Appointment{} }
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
