package execrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype under which the JSON codec is
// registered. Clients select it per call with grpc.CallContentSubtype, so
// proto-based services (health, reflection) on the same server are
// untouched.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec frames messages as plain JSON. The service's messages are Go
// structs with json tags rather than generated protobuf types, which keeps
// the contract inspectable and the client surface dependency-light.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }
