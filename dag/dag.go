// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/log"
	"github.com/vertexdag/consensus/crypto/pq"
)

var (
	// ErrUnknownVertex is returned when looking up a vertex that does
	// not exist in the DAG (spec §7).
	ErrUnknownVertex = errors.New("dag: unknown vertex")
	// ErrVertexExists is returned when inserting a vertex whose ID is
	// already present.
	ErrVertexExists = errors.New("dag: vertex already exists")
	// ErrMissingParent is returned when a vertex references a parent
	// that has not been inserted yet.
	ErrMissingParent = errors.New("dag: missing parent")
	// ErrUnknownCreator is returned when no public key is registered
	// for a vertex's claimed creator.
	ErrUnknownCreator = errors.New("dag: unknown creator public key")
	// ErrInvalidSignature is returned when a vertex's signature fails
	// to verify under its creator's public key.
	ErrInvalidSignature = errors.New("dag: invalid vertex signature")
	// ErrAlreadyFinalized is returned by UpdateMetadata when the
	// mutation would touch a vertex whose finality has already been
	// committed (finality monotonicity, spec §3).
	ErrAlreadyFinalized = errors.New("dag: vertex already finalized")
)

// KeyResolver looks up the public key registered for a peer. It is
// the "public_key_of" boundary from spec §4.2, kept as a narrow
// function type so the DAG does not need to know how keys are
// distributed (PKI distribution is out of scope, spec §1).
type KeyResolver func(creator PeerID) (pq.PublicKey, bool)

// entry is a single sharded-lock slot: one vertex plus the lock that
// guards its metadata, so mutating vertex X never blocks a read or
// write on unrelated vertex Y (spec §5 forbids a single coarse lock).
type entry struct {
	mu     sync.RWMutex
	vertex Vertex
}

// DAG is the in-memory, per-vertex-locked vertex store (spec §4.1).
type DAG struct {
	keyOf KeyResolver
	log   log.Logger

	mu       sync.RWMutex // guards the maps below, not vertex metadata
	vertices map[ID]*entry
	children map[ID][]ID
}

// New creates an empty DAG. keyOf resolves a creator's public key at
// insertion time; logger may be log.NewNoOpLogger() in tests.
func New(keyOf KeyResolver, logger log.Logger) *DAG {
	return &DAG{
		keyOf:    keyOf,
		log:      logger,
		vertices: make(map[ID]*entry),
		children: make(map[ID][]ID),
	}
}

// AddVertex inserts v, failing if its ID already exists, any parent is
// missing, its stored hash doesn't match its canonical fields, or its
// signature doesn't verify under the creator's known public key (spec
// §4.1). On success the vertex starts with metadata (0.0, 0, false).
func (d *DAG) AddVertex(v Vertex) error {
	if err := v.StructuralCheck(); err != nil {
		return err
	}

	pub, ok := d.keyOf(v.Creator)
	if !ok {
		return fmt.Errorf("%w: creator %s", ErrUnknownCreator, v.Creator)
	}
	if !v.VerifySignature(pub) {
		return fmt.Errorf("%w: vertex %s", ErrInvalidSignature, v.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.vertices[v.ID]; exists {
		return fmt.Errorf("%w: %s", ErrVertexExists, v.ID)
	}
	for _, p := range v.Parents {
		if _, exists := d.vertices[p]; !exists {
			return fmt.Errorf("%w: %s references missing parent %s", ErrMissingParent, v.ID, p)
		}
	}

	v.Metadata = Metadata{Confidence: 0, ConsecutiveSuccesses: 0, Finalized: false}
	d.vertices[v.ID] = &entry{vertex: v}
	for _, p := range v.Parents {
		d.children[p] = append(d.children[p], v.ID)
	}

	d.log.Debug("vertex added", "id", v.ID, "parents", len(v.Parents))
	return nil
}

// GetVertex returns a snapshot copy of the vertex with the given ID.
// The copy is safe to read without holding any lock. It is shallow:
// its Parents, Payload and Signature slices share storage with the
// stored vertex, so their elements must not be modified.
func (d *DAG) GetVertex(id ID) (Vertex, error) {
	e := d.lookup(id)
	if e == nil {
		return Vertex{}, fmt.Errorf("%w: %s", ErrUnknownVertex, id)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vertex, nil
}

func (d *DAG) lookup(id ID) *entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vertices[id]
}

// UpdateMetadata applies f to the metadata of id under that vertex's
// exclusive lock. It fails if the vertex doesn't exist, or if it is
// already finalized — finality is a one-way transition (spec §3, §8
// property 7) — unless f leaves the metadata exactly as it already
// was, which is treated as a harmless no-op so idempotent finalize
// callers don't need special-case handling.
func (d *DAG) UpdateMetadata(id ID, f func(*Metadata)) (err error) {
	e := d.lookup(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownVertex, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dag: metadata update panicked for vertex %s: %v", id, r)
		}
	}()

	if e.vertex.Metadata.Finalized {
		probe := e.vertex.Metadata
		f(&probe)
		if probe != e.vertex.Metadata {
			return fmt.Errorf("%w: %s", ErrAlreadyFinalized, id)
		}
		return nil
	}

	f(&e.vertex.Metadata)
	return nil
}

// ChildrenOf returns the IDs of vertices that list id as a parent.
func (d *DAG) ChildrenOf(id ID) []ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ID, len(d.children[id]))
	copy(out, d.children[id])
	return out
}

// PendingVertices returns a snapshot of non-finalized vertex IDs. The
// view is restartable (a fresh snapshot each call) but unordered, as
// permitted by spec §4.1.
func (d *DAG) PendingVertices() []ID {
	d.mu.RLock()
	ids := make([]ID, 0, len(d.vertices))
	for id := range d.vertices {
		ids = append(ids, id)
	}
	d.mu.RUnlock()

	out := ids[:0]
	for _, id := range ids {
		e := d.lookup(id)
		if e == nil {
			continue
		}
		e.mu.RLock()
		finalized := e.vertex.Metadata.Finalized
		e.mu.RUnlock()
		if !finalized {
			out = append(out, id)
		}
	}
	return out
}

// AllVertices returns a snapshot of every vertex in the DAG, used by
// parent selection and conflict resolution (spec §4.5.1, §4.5.4).
func (d *DAG) AllVertices() []Vertex {
	d.mu.RLock()
	entries := make([]*entry, 0, len(d.vertices))
	for _, e := range d.vertices {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	out := make([]Vertex, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.vertex)
		e.mu.RUnlock()
	}
	return out
}

// ParentsFinalized reports whether every parent of id is finalized
// (genesis vertices with no parents vacuously satisfy this, spec §3's
// finality downward closure).
func (d *DAG) ParentsFinalized(id ID) (bool, error) {
	v, err := d.GetVertex(id)
	if err != nil {
		return false, err
	}
	for _, p := range v.Parents {
		pv, err := d.GetVertex(p)
		if err != nil {
			return false, fmt.Errorf("dag: parent %s of %s: %w", p, id, err)
		}
		if !pv.Metadata.Finalized {
			return false, nil
		}
	}
	return true, nil
}

// Len returns the number of vertices currently stored.
func (d *DAG) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.vertices)
}
