// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package sampling

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultParametersAreValid(t *testing.T) {
	require.NoError(t, DefaultParameters().Verify())
}

func TestVerifyRejectsZeroK(t *testing.T) {
	p := DefaultParameters()
	p.K = 0
	require.ErrorIs(t, p.Verify(), ErrInvalidK)
}

func TestVerifyRejectsAlphaNotAboveHalfK(t *testing.T) {
	p := DefaultParameters()
	p.K = 10
	p.Alpha = 5
	require.ErrorIs(t, p.Verify(), ErrInvalidAlpha)
}

func TestVerifyRejectsAlphaAboveK(t *testing.T) {
	p := DefaultParameters()
	p.Alpha = p.K + 1
	require.ErrorIs(t, p.Verify(), ErrInvalidAlpha)
}

func TestVerifyRejectsNonPositiveBeta(t *testing.T) {
	p := DefaultParameters()
	p.Beta = 0
	require.ErrorIs(t, p.Verify(), ErrInvalidBeta)
}

func TestVerifyRejectsTauOutOfRange(t *testing.T) {
	p := DefaultParameters()
	p.Tau = 0
	require.ErrorIs(t, p.Verify(), ErrInvalidTau)

	p.Tau = 1.5
	require.ErrorIs(t, p.Verify(), ErrInvalidTau)
}

func TestVerifyRejectsNonPositiveMaxRounds(t *testing.T) {
	p := DefaultParameters()
	p.MaxRounds = 0
	require.ErrorIs(t, p.Verify(), ErrInvalidMaxRounds)
}

func TestVerifyRejectsNegativeMinNetworkSize(t *testing.T) {
	p := DefaultParameters()
	p.MinNetworkSize = -1
	require.ErrorIs(t, p.Verify(), ErrInvalidMinNetworkSize)
}

func TestSmallNetworkParametersScalesDown(t *testing.T) {
	require := require.New(t)

	p := SmallNetworkParameters(4) // n=4 -> k=min(3,10)=3
	require.NoError(p.Verify())
	require.Equal(3, p.K)
	require.Greater(p.Alpha, p.K/2)
	require.LessOrEqual(p.Alpha, p.K)
}

func TestSmallNetworkParametersFloorsAtOne(t *testing.T) {
	require := require.New(t)

	p := SmallNetworkParameters(1) // n=1 -> k would be 0, floored to 1
	require.NoError(p.Verify())
	require.Equal(1, p.K)
}
