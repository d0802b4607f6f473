// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"bytes"

	"github.com/vertexdag/consensus/dag"
)

// ConflictOracle declares whether two vertices' payloads are
// application-level incompatible (spec §4.5.4: "the incompatibility
// oracle is external"). This core only fixes the tie-breaking order
// once the oracle has made that call.
type ConflictOracle func(a, b dag.Vertex) bool

// Conflicts reports whether a and b are in conflict: they share at
// least one parent and the oracle declares their payloads
// incompatible (spec §4.5.4).
func Conflicts(a, b dag.Vertex, oracle ConflictOracle) bool {
	if !sharesParent(a, b) {
		return false
	}
	return oracle(a, b)
}

func sharesParent(a, b dag.Vertex) bool {
	parents := make(map[dag.ID]struct{}, len(a.Parents))
	for _, p := range a.Parents {
		parents[p] = struct{}{}
	}
	for _, p := range b.Parents {
		if _, ok := parents[p]; ok {
			return true
		}
	}
	return false
}

// ResolveConflict picks the winner between two finality-eligible
// conflicting vertices (spec §4.5.4): higher confidence wins; ties
// break on lower timestamp, then on lexicographically smaller ID.
func ResolveConflict(a, b dag.Vertex) (winner, loser dag.Vertex) {
	if a.Metadata.Confidence != b.Metadata.Confidence {
		if a.Metadata.Confidence > b.Metadata.Confidence {
			return a, b
		}
		return b, a
	}
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return a, b
		}
		return b, a
	}
	if bytes.Compare(a.ID[:], b.ID[:]) <= 0 {
		return a, b
	}
	return b, a
}
