// Copyright 2025 VRF Relay Worker Authors

package oracleclient

import "encoding/binary"

// encodeOBIUint64 encodes a fixed-width unsigned integer per the Oracle
// Binary Interface: big-endian, no length prefix.
func encodeOBIUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// encodeOBIBytes encodes a variable-length byte vector per OBI: a
// big-endian u32 length prefix followed by the raw bytes.
func encodeOBIBytes(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out[:4], uint32(len(b)))
	copy(out[4:], b)
	return out
}

// RequestInput is the OBI record {seed:[u8], time:u64, worker_address:[u8]}
// the oracle script expects as calldata.
type RequestInput struct {
	Seed          []byte
	Time          uint64
	WorkerAddress []byte
}

// Encode produces the canonical OBI-encoded calldata for this input.
func (in RequestInput) Encode() []byte {
	out := make([]byte, 0, 4+len(in.Seed)+8+4+len(in.WorkerAddress))
	out = append(out, encodeOBIBytes(in.Seed)...)
	out = append(out, encodeOBIUint64(in.Time)...)
	out = append(out, encodeOBIBytes(in.WorkerAddress)...)
	return out
}

// RequestOutput is the OBI schema the oracle script is declared to return:
// {proof:[u8], result:[u8]}. The relay worker never decodes
// this itself — the proof is fetched separately via the Proof endpoint —
// but the schema is recorded here since it's part of the oracle script's
// public contract.
type RequestOutput struct {
	Proof  []byte
	Result []byte
}
