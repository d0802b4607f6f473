// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package network defines the query/response wire protocol and the
// NetworkAdapter boundary contract (spec §4.4, §6): the only point of
// network I/O the consensus engine sees. The actual QUIC transport
// and PKI distribution are out of scope (spec §1) and are represented
// here only as narrow interfaces the engine's adapter composes.
package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"
)

// ErrTruncatedMessage is returned when decoding a message whose
// declared length prefixes run past the end of the buffer.
var ErrTruncatedMessage = errors.New("network: truncated message")

// ConsensusQuery is the request sent to sample_size peers each round
// (spec §3, §6).
type ConsensusQuery struct {
	QueryID     ids.ID
	VertexID    ids.ID
	RequesterID ids.NodeID
	Timestamp   uint64
	Signature   []byte
}

// ConsensusResponse is one peer's signed vote for a queried vertex
// (spec §3, §6).
type ConsensusResponse struct {
	QueryID     ids.ID
	VertexID    ids.ID
	ResponderID ids.NodeID
	Vote        bool
	Confidence  float64
	Timestamp   uint64
	Signature   []byte
}

// SignedBytes returns the canonical serialization of every field
// except the signature and its length prefix (spec §6 "Signature
// scope"), i.e. exactly what the requester signs and a verifier checks.
func (q *ConsensusQuery) SignedBytes() []byte {
	buf := make([]byte, 0, 16+16+len(q.RequesterID)+8)
	buf = append(buf, q.QueryID[:]...)
	buf = append(buf, q.VertexID[:]...)
	buf = append(buf, q.RequesterID[:]...)
	buf = appendUint64(buf, q.Timestamp)
	return buf
}

// Marshal encodes q as query_id, vertex_id, requester, timestamp (u64
// LE), signature_len+signature. The requester is written as its raw
// fixed-size node ID, without a length prefix.
func (q *ConsensusQuery) Marshal() []byte {
	buf := make([]byte, 0, len(q.SignedBytes())+4+len(q.Signature))
	buf = append(buf, q.SignedBytes()...)
	buf = appendBytes(buf, q.Signature)
	return buf
}

// UnmarshalConsensusQuery decodes a ConsensusQuery from its wire form.
func UnmarshalConsensusQuery(b []byte) (ConsensusQuery, error) {
	var q ConsensusQuery
	r := newReader(b)

	if err := r.readID(&q.QueryID); err != nil {
		return q, err
	}
	if err := r.readID(&q.VertexID); err != nil {
		return q, err
	}
	if err := r.readNodeID(&q.RequesterID); err != nil {
		return q, err
	}
	ts, err := r.readUint64()
	if err != nil {
		return q, err
	}
	q.Timestamp = ts
	sig, err := r.readBytes()
	if err != nil {
		return q, err
	}
	q.Signature = sig
	return q, nil
}

// SignedBytes returns the canonical serialization of every field
// except the signature and its length prefix (spec §6).
func (r *ConsensusResponse) SignedBytes() []byte {
	buf := make([]byte, 0, 16+16+len(r.ResponderID)+1+8+8)
	buf = append(buf, r.QueryID[:]...)
	buf = append(buf, r.VertexID[:]...)
	buf = append(buf, r.ResponderID[:]...)
	if r.Vote {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = appendFloat64(buf, r.Confidence)
	buf = appendUint64(buf, r.Timestamp)
	return buf
}

// Marshal encodes r as query_id, vertex_id, responder, vote (u8),
// confidence (f64 LE), timestamp (u64 LE), signature_len+signature.
// The responder is written as its raw fixed-size node ID, without a
// length prefix.
func (r *ConsensusResponse) Marshal() []byte {
	buf := make([]byte, 0, len(r.SignedBytes())+4+len(r.Signature))
	buf = append(buf, r.SignedBytes()...)
	buf = appendBytes(buf, r.Signature)
	return buf
}

// UnmarshalConsensusResponse decodes a ConsensusResponse from its wire form.
func UnmarshalConsensusResponse(b []byte) (ConsensusResponse, error) {
	var resp ConsensusResponse
	r := newReader(b)

	if err := r.readID(&resp.QueryID); err != nil {
		return resp, err
	}
	if err := r.readID(&resp.VertexID); err != nil {
		return resp, err
	}
	if err := r.readNodeID(&resp.ResponderID); err != nil {
		return resp, err
	}
	voteByte, err := r.readByte()
	if err != nil {
		return resp, err
	}
	resp.Vote = voteByte != 0

	conf, err := r.readFloat64()
	if err != nil {
		return resp, err
	}
	resp.Confidence = conf

	ts, err := r.readUint64()
	if err != nil {
		return resp, err
	}
	resp.Timestamp = ts

	sig, err := r.readBytes()
	if err != nil {
		return resp, err
	}
	resp.Signature = sig
	return resp, nil
}

// --- little-endian, length-prefixed primitives (spec §6) ---

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendFloat64(buf []byte, f float64) []byte {
	return appendUint64(buf, math.Float64bits(f))
}

func appendBytes(buf, data []byte) []byte {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(data)))
	buf = append(buf, length[:]...)
	return append(buf, data...)
}

type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) need(n int) error {
	if r.pos+n > len(r.b) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedMessage, n, r.pos, len(r.b))
	}
	return nil
}

func (r *reader) readID(out *ids.ID) error {
	if err := r.need(len(*out)); err != nil {
		return err
	}
	copy(out[:], r.b[r.pos:r.pos+len(*out)])
	r.pos += len(*out)
	return nil
}

func (r *reader) readNodeID(out *ids.NodeID) error {
	if err := r.need(len(*out)); err != nil {
		return err
	}
	copy(out[:], r.b[r.pos:r.pos+len(*out)])
	r.pos += len(*out)
	return nil
}

func (r *reader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.b[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.b[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *reader) readFloat64() (float64, error) {
	bits, err := r.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (r *reader) readBytes() ([]byte, error) {
	if err := r.need(4); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(r.b[r.pos : r.pos+4])
	r.pos += 4
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.b[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}
