// Copyright 2025 VRF Relay Worker Authors
//
// The oracle chain's actual protobuf schema is explicitly out of scope;
// rather than vendor generated stubs for it, this package dials a real
// google.golang.org/grpc channel and negotiates a small JSON codec over it
// so the unary-call, polling, and timeout semantics can be exercised
// against any gRPC-speaking oracle endpoint that understands the same
// content-subtype.
package oracleclient

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return jsonCodecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("oracleclient: marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("oracleclient: unmarshal into %T: %w", v, err)
	}
	return nil
}
