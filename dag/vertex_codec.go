// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncatedVertexMessage is returned when decoding a VertexMessage
// whose declared lengths run past the end of the buffer.
var ErrTruncatedVertexMessage = errors.New("dag: truncated vertex message")

// Marshal encodes v as a VertexMessage per spec §6's field order: id,
// creator_len+creator, parents_count, parents, payload_len+payload,
// timestamp, hash, signature_len+signature.
func (v *Vertex) Marshal() []byte {
	buf := make([]byte, 0, 16+4+16+4+4+len(v.Payload)+8+32+4+len(v.Signature))
	buf = append(buf, v.ID[:]...)
	buf = appendLenPrefixed(buf, v.Creator[:])
	buf = appendUint32(buf, uint32(len(v.Parents)))
	for _, p := range v.Parents {
		buf = append(buf, p[:]...)
	}
	buf = appendLenPrefixed(buf, v.Payload)
	buf = appendUint64(buf, v.Timestamp)
	buf = append(buf, v.Hash[:]...)
	buf = appendLenPrefixed(buf, v.Signature)
	return buf
}

// UnmarshalVertex decodes a VertexMessage from its wire form.
func UnmarshalVertex(b []byte) (Vertex, error) {
	var v Vertex
	pos := 0

	need := func(n int) error {
		if pos+n > len(b) {
			return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedVertexMessage, n, pos, len(b))
		}
		return nil
	}

	if err := need(len(v.ID)); err != nil {
		return v, err
	}
	copy(v.ID[:], b[pos:pos+len(v.ID)])
	pos += len(v.ID)

	creator, n, err := readLenPrefixed(b, pos)
	if err != nil {
		return v, err
	}
	if len(creator) != len(v.Creator) {
		return v, fmt.Errorf("%w: creator has %d bytes, want %d", ErrTruncatedVertexMessage, len(creator), len(v.Creator))
	}
	copy(v.Creator[:], creator)
	pos = n

	if err := need(4); err != nil {
		return v, err
	}
	parentsCount := binary.LittleEndian.Uint32(b[pos : pos+4])
	pos += 4

	v.Parents = make([]ID, parentsCount)
	for i := range v.Parents {
		if err := need(len(v.Parents[i])); err != nil {
			return v, err
		}
		copy(v.Parents[i][:], b[pos:pos+len(v.Parents[i])])
		pos += len(v.Parents[i])
	}

	payload, n, err := readLenPrefixed(b, pos)
	if err != nil {
		return v, err
	}
	v.Payload = payload
	pos = n

	if err := need(8); err != nil {
		return v, err
	}
	v.Timestamp = binary.LittleEndian.Uint64(b[pos : pos+8])
	pos += 8

	if err := need(len(v.Hash)); err != nil {
		return v, err
	}
	copy(v.Hash[:], b[pos:pos+len(v.Hash)])
	pos += len(v.Hash)

	sig, n, err := readLenPrefixed(b, pos)
	if err != nil {
		return v, err
	}
	v.Signature = sig
	_ = n

	return v, nil
}

func appendUint32(buf []byte, n uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, n uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return append(buf, b[:]...)
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func readLenPrefixed(b []byte, pos int) (data []byte, newPos int, err error) {
	if pos+4 > len(b) {
		return nil, 0, fmt.Errorf("%w: need 4 bytes at offset %d, have %d", ErrTruncatedVertexMessage, pos, len(b))
	}
	n := binary.LittleEndian.Uint32(b[pos : pos+4])
	pos += 4
	if pos+int(n) > len(b) {
		return nil, 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedVertexMessage, n, pos, len(b))
	}
	out := make([]byte, n)
	copy(out, b[pos:pos+int(n)])
	return out, pos + int(n), nil
}
