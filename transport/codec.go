package transport

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is registered with gRPC's codec registry (the same mechanism
// protoc-generated stubs use, just pointed at our hand-written wire types
// instead of reflection-based protobuf messages). Callers pass it to
// grpc.CallContentSubtype so outgoing RPCs are encoded with it.
const CodecName = "nutswire"

type wireMarshaler interface {
	Marshal() ([]byte, error)
}

type wireUnmarshaler interface {
	Unmarshal([]byte) error
}

type wireCodec struct{}

func (wireCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(wireMarshaler)
	if !ok {
		return nil, fmt.Errorf("transport: %T does not implement Marshal", v)
	}
	return m.Marshal()
}

func (wireCodec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(wireUnmarshaler)
	if !ok {
		return fmt.Errorf("transport: %T does not implement Unmarshal", v)
	}
	return m.Unmarshal(data)
}

func (wireCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(wireCodec{})
}
