// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package confidence

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestUpdateEMAConvergesTowardRatio(t *testing.T) {
	require := require.New(t)

	tr := New()
	id := ids.GenerateTestID()

	// S1 from spec §8: three rounds of ratio=1.0 should land confidence
	// near 0.271 (0.9^3 compounding of a 0 start toward 1.0).
	var got float64
	for i := 0; i < 3; i++ {
		got = tr.Update(id, 1.0, true, false)
	}
	require.InDelta(0.271, got, 0.001)
}

func TestUpdateFailedRoundResetsStreakNotConfidence(t *testing.T) {
	require := require.New(t)

	tr := New()
	id := ids.GenerateTestID()

	tr.Update(id, 1.0, true, false)
	tr.Update(id, 1.0, true, false)
	confBefore, streakBefore, _ := tr.Get(id)
	require.Equal(uint32(2), streakBefore)

	confAfter := tr.Update(id, 0.0, false, false)
	_, streakAfter, total := tr.Get(id)
	require.Equal(uint32(0), streakAfter)
	require.Less(confAfter, confBefore)
	require.Equal(uint32(3), total)
}

func TestUpdateEmptyRoundLeavesConfidenceUntouched(t *testing.T) {
	require := require.New(t)

	tr := New()
	id := ids.GenerateTestID()

	tr.Update(id, 1.0, true, false)
	before, _, _ := tr.Get(id)

	after := tr.Update(id, 0, false, true)
	require.Equal(before, after)

	_, streak, total := tr.Get(id)
	require.Equal(uint32(0), streak)
	require.Equal(uint32(2), total)
}

func TestConfidenceStaysInUnitInterval(t *testing.T) {
	require := require.New(t)

	tr := New()
	id := ids.GenerateTestID()

	for i := 0; i < 50; i++ {
		c := tr.Update(id, 1.0, true, false)
		require.GreaterOrEqual(c, 0.0)
		require.LessOrEqual(c, 1.0)
	}
}

func TestResetClearsState(t *testing.T) {
	require := require.New(t)

	tr := New()
	id := ids.GenerateTestID()

	tr.Update(id, 1.0, true, false)
	tr.Reset(id)

	conf, streak, total := tr.Get(id)
	require.Zero(conf)
	require.Zero(streak)
	require.Zero(total)
}

func TestSetConfidencePinsValueWithoutTouchingCounters(t *testing.T) {
	require := require.New(t)

	tr := New()
	id := ids.GenerateTestID()

	tr.Update(id, 1.0, true, false)
	tr.SetConfidence(id, 1.0)

	conf, streak, total := tr.Get(id)
	require.Equal(1.0, conf)
	require.Equal(uint32(1), streak)
	require.Equal(uint32(1), total)
}

func TestVertexShardsAreIndependent(t *testing.T) {
	require := require.New(t)

	tr := New()
	a, b := ids.GenerateTestID(), ids.GenerateTestID()

	tr.Update(a, 1.0, true, false)
	confB, streakB, totalB := tr.Get(b)
	require.Zero(confB)
	require.Zero(streakB)
	require.Zero(totalB)
}
