// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package byzantine

import (
	"sync"
	"testing"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func newDetector() *Detector {
	return New(log.NewNoOpLogger())
}

func TestNewPeerStartsTrustedAtFullReputation(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()

	require.Equal(1.0, d.Reputation(peer))
	require.True(d.IsTrusted(peer))
}

func TestEquivocationHalvesReputationAndUntrusts(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()
	vertex := ids.GenerateTestID()

	require.False(d.DetectEquivocation(peer, vertex, []byte("vote:true")))
	require.True(d.DetectEquivocation(peer, vertex, []byte("vote:false")))

	require.Equal(0.5, d.Reputation(peer))
	require.False(d.IsTrusted(peer))
}

func TestSameVoteTwiceIsNotEquivocation(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()
	vertex := ids.GenerateTestID()

	require.False(d.DetectEquivocation(peer, vertex, []byte("vote:true")))
	require.False(d.DetectEquivocation(peer, vertex, []byte("vote:true")))
	require.Equal(1.0, d.Reputation(peer))
}

func TestDetectEquivocationIsIdempotentForFixedTriple(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()
	vertex := ids.GenerateTestID()

	d.DetectEquivocation(peer, vertex, []byte("vote:true"))
	first := d.DetectEquivocation(peer, vertex, []byte("vote:false"))
	repBefore := d.Reputation(peer)

	second := d.DetectEquivocation(peer, vertex, []byte("vote:false"))
	require.Equal(first, second)
	require.Equal(repBefore, d.Reputation(peer))
}

func TestInvalidSignatureReducesButDoesNotUntrustAlone(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()

	d.ReportInvalidSignature(peer)
	require.InDelta(0.9, d.Reputation(peer), 1e-9)
	require.True(d.IsTrusted(peer))
}

func TestGoodBehaviorRecoversReputationUpToOne(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()

	d.ReportInvalidSignature(peer)
	for i := 0; i < 50; i++ {
		d.RecordAccepted(peer)
	}
	require.Equal(1.0, d.Reputation(peer))
}

func TestReputationStaysClamped(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()

	for i := 0; i < 200; i++ {
		d.ReportInvalidSignature(peer)
	}
	rep := d.Reputation(peer)
	require.GreaterOrEqual(rep, 0.0)
	require.LessOrEqual(rep, 1.0)
}

func TestResetPeerRestoresFullTrust(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	peer := ids.GenerateTestNodeID()
	vertex := ids.GenerateTestID()

	d.DetectEquivocation(peer, vertex, []byte("a"))
	d.DetectEquivocation(peer, vertex, []byte("b"))
	require.False(d.IsTrusted(peer))

	d.ResetPeer(peer)
	require.True(d.IsTrusted(peer))
	require.False(d.DetectEquivocation(peer, vertex, []byte("a")))
}

func TestDetectorIsSafeForConcurrentPeers(t *testing.T) {
	require := require.New(t)

	d := newDetector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		peer := ids.GenerateTestNodeID()
		wg.Add(1)
		go func(p ids.NodeID) {
			defer wg.Done()
			d.ReportInvalidSignature(p)
			d.RecordAccepted(p)
		}(peer)
	}
	wg.Wait()
	require.NotPanics(func() {})
}
