// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finality holds the pure finality predicate and the
// finalization mutation spec §4.5.2 step 8 and §4.5.3 describe,
// factored out of the round loop the way the teacher keeps its
// termination conditions (confidence/termination.go) separate from
// its poll-driving loop.
package finality

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/vertexdag/consensus/confidence"
	"github.com/vertexdag/consensus/dag"
	"github.com/vertexdag/consensus/sampling"
)

// ErrStateInconsistency reports the fatal invariant violation spec §7
// names: a finalized vertex whose confidence fell below tau. Neither
// CanFinalize nor Finalize returns it (Finalize always sets confidence
// to 1.0), and no other code in this module returns it either.
var ErrStateInconsistency = fmt.Errorf("finality: state inconsistency")

// CanFinalize reports whether vertexID meets every clause of spec
// §4.5.2 step 8's conjunction: confidence ≥ tau, consecutive
// successes ≥ beta, every parent already finalized (vacuously true
// for a parentless vertex), and the vertex is not already finalized.
func CanFinalize(vertexID ids.ID, d *dag.DAG, tracker *confidence.Tracker, params sampling.Parameters) (bool, error) {
	v, err := d.GetVertex(vertexID)
	if err != nil {
		return false, err
	}
	if v.Metadata.Finalized {
		return false, nil
	}

	conf, successes, _ := tracker.Get(vertexID)
	if conf < params.Tau {
		return false, nil
	}
	if successes < uint32(params.Beta) {
		return false, nil
	}

	parentsFinalized, err := d.ParentsFinalized(vertexID)
	if err != nil {
		return false, err
	}
	return parentsFinalized, nil
}

// Finalize performs the state mutation spec §4.5.3 describes: set
// finalized = true and confidence = 1.0 atomically under the DAG's
// per-vertex lock, and report success so the caller can emit a
// finalization notice (broadcast is the caller's concern, spec §4.5.3
// "detail out of scope").
func Finalize(vertexID ids.ID, d *dag.DAG, tracker *confidence.Tracker) error {
	if err := d.UpdateMetadata(vertexID, func(m *dag.Metadata) {
		m.Finalized = true
		m.Confidence = 1.0
	}); err != nil {
		return err
	}
	tracker.SetConfidence(vertexID, 1.0)
	return nil
}
