// Package api defines the housesplit.v1 RPC surface: message types,
// procedure names, and Connect handler and client constructors.
//
// Messages are plain Go structs carried by a JSON codec, so any Connect or
// HTTP client can call the services with Content-Type: application/json.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec is a Connect codec that encodes messages with encoding/json.
// It registers under the name "json", replacing Connect's protobuf-only
// JSON codec.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
