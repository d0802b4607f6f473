// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dag implements the in-memory vertex graph the consensus
// engine drives rounds over (spec §3, §4.1): vertices keyed by ID,
// parent-linked, with mutable per-vertex confidence metadata.
package dag

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/vertexdag/consensus/crypto/hash"
	"github.com/vertexdag/consensus/crypto/pq"
)

// MaxParents is the structural bound on a vertex's parent set (spec §3).
const MaxParents = 8

// MaxPayloadSize bounds the opaque application payload (spec §3: ≤1 MiB).
const MaxPayloadSize = 1 << 20

// ID identifies a vertex. The teacher ecosystem's ids.ID is a 32-byte
// comparable array — spec §3 calls for "a 16-byte UUID or equivalent";
// this is the equivalent chosen, kept consistent with every other
// identifier in this module.
type ID = ids.ID

// PeerID identifies the agent that created or is being queried about a
// vertex.
type PeerID = ids.NodeID

// Metadata is the mutable, per-vertex consensus state (spec §3).
// Once Finalized is true, every other field is frozen by convention —
// callers must route mutation exclusively through DAG.UpdateMetadata,
// which enforces that.
type Metadata struct {
	Confidence           float64
	ConsecutiveSuccesses uint32
	Finalized            bool
}

// Vertex is one signed, DAG-linked proposal (spec §3).
type Vertex struct {
	ID        ID
	Creator   PeerID
	Parents   []ID
	Payload   []byte
	Timestamp uint64 // milliseconds since epoch, creator-assigned, untrusted for ordering
	Hash      [hash.Size]byte
	Signature []byte

	Metadata Metadata
}

var (
	// ErrTooManyParents reports a vertex with more than MaxParents parents.
	ErrTooManyParents = errors.New("dag: vertex has too many parents")
	// ErrPayloadTooLarge reports an oversized payload.
	ErrPayloadTooLarge = errors.New("dag: vertex payload exceeds maximum size")
	// ErrDuplicateParent reports two parents with the same ID.
	ErrDuplicateParent = errors.New("dag: duplicate parent id")
	// ErrHashMismatch reports a stored hash that doesn't match its fields.
	ErrHashMismatch = errors.New("dag: vertex hash does not match canonical fields")
)

// CanonicalBytes returns the exact byte sequence hashed and signed for
// a vertex: "id ‖ creator ‖ parents (in order) ‖ payload ‖ timestamp"
// (spec §6), excluding the signature and its length prefix.
func (v *Vertex) CanonicalBytes() []byte {
	buf := make([]byte, 0, len(v.ID)+len(v.Creator)+len(v.Parents)*len(ID{})+len(v.Payload)+8)
	buf = append(buf, v.ID[:]...)
	buf = append(buf, v.Creator[:]...)
	for _, p := range v.Parents {
		buf = append(buf, p[:]...)
	}
	buf = append(buf, v.Payload...)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], v.Timestamp)
	buf = append(buf, ts[:]...)
	return buf
}

// ComputeHash returns the BLAKE3 hash of the vertex's canonical bytes.
func (v *Vertex) ComputeHash() [hash.Size]byte {
	return hash.Sum256(v.CanonicalBytes())
}

// StructuralCheck validates the shape invariants from spec §3 that do
// not require DAG context (parent existence is checked by DAG.AddVertex).
func (v *Vertex) StructuralCheck() error {
	if len(v.Parents) > MaxParents {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyParents, len(v.Parents), MaxParents)
	}
	if len(v.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: got %d bytes, max %d", ErrPayloadTooLarge, len(v.Payload), MaxPayloadSize)
	}
	seen := make(map[ID]struct{}, len(v.Parents))
	for _, p := range v.Parents {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateParent, p)
		}
		seen[p] = struct{}{}
	}
	if v.ComputeHash() != v.Hash {
		return ErrHashMismatch
	}
	return nil
}

// VerifySignature checks the vertex's ML-DSA-87 signature over its
// stored hash under the creator's known public key (spec §3/§4.2).
func (v *Vertex) VerifySignature(creatorKey pq.PublicKey) bool {
	return pq.Verify(creatorKey, v.Hash[:], v.Signature)
}

// Age returns how long ago the vertex's timestamp claims it was
// created, relative to now. Used only for advisory parent-selection
// filtering (spec §4.5.1) — never for ordering or finality.
func (v *Vertex) Age(now time.Time) time.Duration {
	created := time.UnixMilli(int64(v.Timestamp))
	return now.Sub(created)
}
