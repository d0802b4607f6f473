// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/vertexdag/consensus/dag"
)

// maxParentCandidates is the number of parents propose() attaches to a
// new vertex (spec §4.5.1 picks exactly 2).
const maxParentCandidates = 2

// parentConfidenceFloor and parentMaxAge are the spec §4.5.1 filter:
// confidence > 0.8 AND age <= 10s.
const parentConfidenceFloor = 0.8

var parentMaxAge = 10 * time.Second

// SelectParents implements spec §4.5.1: from the DAG's non-finalized
// vertices, filter to those with confidence > 0.8 and age <= 10s; if
// at least two remain, pick two uniformly at random without
// replacement; otherwise fall back to the newest two non-finalized
// vertices, returning fewer (possibly zero, for a genesis proposal) if
// that many don't exist.
func SelectParents(d *dag.DAG, now time.Time) []dag.ID {
	candidates := nonFinalizedVertices(d)

	filtered := make([]dag.Vertex, 0, len(candidates))
	for _, v := range candidates {
		if v.Metadata.Confidence > parentConfidenceFloor && v.Age(now) <= parentMaxAge {
			filtered = append(filtered, v)
		}
	}

	if len(filtered) >= maxParentCandidates {
		rand.Shuffle(len(filtered), func(i, j int) { filtered[i], filtered[j] = filtered[j], filtered[i] })
		return parentIDs(filtered[:maxParentCandidates])
	}

	// Fallback: the newest maxParentCandidates non-finalized vertices,
	// newest first by creator-assigned timestamp.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Timestamp > candidates[j].Timestamp })
	if len(candidates) > maxParentCandidates {
		candidates = candidates[:maxParentCandidates]
	}
	return parentIDs(candidates)
}

func nonFinalizedVertices(d *dag.DAG) []dag.Vertex {
	all := d.AllVertices()
	out := make([]dag.Vertex, 0, len(all))
	for _, v := range all {
		if !v.Metadata.Finalized {
			out = append(out, v)
		}
	}
	return out
}

func parentIDs(vs []dag.Vertex) []dag.ID {
	out := make([]dag.ID, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}
