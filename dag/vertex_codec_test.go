// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestVertexMarshalUnmarshalRoundTrip(t *testing.T) {
	require := require.New(t)
	kp := newTestKeyPair(t)

	v := Vertex{
		ID:        ids.GenerateTestID(),
		Creator:   ids.GenerateTestNodeID(),
		Parents:   []ID{ids.GenerateTestID(), ids.GenerateTestID()},
		Payload:   []byte("hello vertex"),
		Timestamp: 1234567890,
	}
	v.Hash = v.ComputeHash()
	v.Signature = kp.Sign(v.Hash[:])

	decoded, err := UnmarshalVertex(v.Marshal())
	require.NoError(err)
	require.Equal(v.ID, decoded.ID)
	require.Equal(v.Creator, decoded.Creator)
	require.Equal(v.Parents, decoded.Parents)
	require.Equal(v.Payload, decoded.Payload)
	require.Equal(v.Timestamp, decoded.Timestamp)
	require.Equal(v.Hash, decoded.Hash)
	require.Equal(v.Signature, decoded.Signature)
}

func TestVertexMarshalRoundTripWithNoParents(t *testing.T) {
	require := require.New(t)
	kp := newTestKeyPair(t)

	v := Vertex{
		ID:        ids.GenerateTestID(),
		Creator:   ids.GenerateTestNodeID(),
		Payload:   nil,
		Timestamp: 1,
	}
	v.Hash = v.ComputeHash()
	v.Signature = kp.Sign(v.Hash[:])

	decoded, err := UnmarshalVertex(v.Marshal())
	require.NoError(err)
	require.Empty(decoded.Parents)
	require.NoError(decoded.StructuralCheck())
}

func TestUnmarshalVertexRejectsTruncatedInput(t *testing.T) {
	require := require.New(t)
	kp := newTestKeyPair(t)

	v := Vertex{ID: ids.GenerateTestID(), Creator: ids.GenerateTestNodeID(), Timestamp: 1}
	v.Hash = v.ComputeHash()
	v.Signature = kp.Sign(v.Hash[:])

	encoded := v.Marshal()
	_, err := UnmarshalVertex(encoded[:len(encoded)-5])
	require.ErrorIs(err, ErrTruncatedVertexMessage)
}
