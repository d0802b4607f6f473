// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/vertexdag/consensus/crypto/pq"
	"github.com/vertexdag/consensus/dag"
)

func newParentSelectDAG(t *testing.T) (*dag.DAG, pq.KeyPair, dag.PeerID) {
	t.Helper()
	kp, err := pq.GenerateKeyPair()
	require.NoError(t, err)
	creator := ids.GenerateTestNodeID()
	resolver := func(c dag.PeerID) (pq.PublicKey, bool) {
		if c != creator {
			return pq.PublicKey{}, false
		}
		return kp.Public, true
	}
	return dag.New(resolver, log.NewNoOpLogger()), kp, creator
}

func insertConfidentVertex(t *testing.T, d *dag.DAG, kp pq.KeyPair, creator dag.PeerID, confidence float64, ts uint64) dag.ID {
	t.Helper()
	v := dag.Vertex{ID: ids.GenerateTestID(), Creator: creator, Timestamp: ts, Payload: []byte("p")}
	v.Hash = v.ComputeHash()
	v.Signature = kp.Sign(v.Hash[:])
	require.NoError(t, d.AddVertex(v))
	require.NoError(t, d.UpdateMetadata(v.ID, func(m *dag.Metadata) { m.Confidence = confidence }))
	return v.ID
}

func TestSelectParentsReturnsEmptyForGenesis(t *testing.T) {
	d, _, _ := newParentSelectDAG(t)
	require.Empty(t, SelectParents(d, time.Now()))
}

func TestSelectParentsPrefersHighConfidenceRecentVertices(t *testing.T) {
	require := require.New(t)
	d, kp, creator := newParentSelectDAG(t)
	now := time.Now()

	a := insertConfidentVertex(t, d, kp, creator, 0.9, uint64(now.UnixMilli()))
	b := insertConfidentVertex(t, d, kp, creator, 0.85, uint64(now.UnixMilli()))
	// Low-confidence vertex should not be picked while a, b qualify.
	insertConfidentVertex(t, d, kp, creator, 0.1, uint64(now.UnixMilli()))

	parents := SelectParents(d, now)
	require.Len(parents, 2)
	require.ElementsMatch([]dag.ID{a, b}, parents)
}

func TestSelectParentsFallsBackToNewestWhenFewQualify(t *testing.T) {
	require := require.New(t)
	d, kp, creator := newParentSelectDAG(t)
	now := time.Now()

	old := insertConfidentVertex(t, d, kp, creator, 0.1, uint64(now.Add(-time.Hour).UnixMilli()))
	newer := insertConfidentVertex(t, d, kp, creator, 0.2, uint64(now.UnixMilli()))

	parents := SelectParents(d, now)
	require.Len(parents, 2)
	require.ElementsMatch([]dag.ID{old, newer}, parents)
}

func TestSelectParentsExcludesStaleHighConfidenceVertex(t *testing.T) {
	require := require.New(t)
	d, kp, creator := newParentSelectDAG(t)
	now := time.Now()

	stale := insertConfidentVertex(t, d, kp, creator, 0.95, uint64(now.Add(-time.Minute).UnixMilli()))
	fresh := insertConfidentVertex(t, d, kp, creator, 0.95, uint64(now.UnixMilli()))

	parents := SelectParents(d, now)
	// stale exceeds the 10s age bound, so the qualifying set has only
	// one entry and the fallback (newest two) applies instead.
	require.Len(parents, 2)
	require.ElementsMatch([]dag.ID{stale, fresh}, parents)
}
