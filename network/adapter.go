// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package network

import (
	"context"
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"golang.org/x/sync/errgroup"

	"github.com/vertexdag/consensus/byzantine"
	"github.com/vertexdag/consensus/crypto/pq"
	"github.com/vertexdag/consensus/sampling"
	"github.com/vertexdag/consensus/set"
)

// ErrInsufficientNetwork is returned when fewer than MinNetworkSize
// trusted, connected peers are available to sample (spec §7
// InsufficientNetwork).
var ErrInsufficientNetwork = errors.New("network: insufficient connected peers")

// KeyResolver looks up a peer's ML-DSA-87 public key so the adapter
// can verify its response signature before the vote is trusted (spec
// §4.4 "verify each response's signature").
type KeyResolver func(peer ids.NodeID) (pq.PublicKey, bool)

// Transport is the external, out-of-scope boundary this core never
// implements: the actual QUIC transport, hybrid X25519/ML-KEM-768
// handshake, and PKI distribution (spec §1, §4.4). Adapter composes a
// Transport with the in-scope sampling and verification logic that
// spec §4.4 fixes as this core's contract.
type Transport interface {
	// Send delivers query to peer and blocks for its response, or
	// returns ctx.Err() if ctx is cancelled first.
	Send(ctx context.Context, peer ids.NodeID, query ConsensusQuery) (ConsensusResponse, error)

	// ConnectedPeers returns the full, unfiltered set of peers
	// currently reachable over the wire.
	ConnectedPeers() []ids.NodeID

	// Broadcast fire-and-forget propagates an already-signed vertex
	// message to the network.
	Broadcast(message []byte)
}

// Adapter is the NetworkAdapter boundary spec §4.4 describes: sampling
// of connected, non-graylisted, trusted peers; bounded concurrent
// querying for the round's query_timeout; and per-response signature
// verification, reporting failures to the Byzantine detector and
// dropping them before they ever reach the engine. Equivocation
// detection and the is_trusted filter belong to the engine's round
// loop (spec §4.5.2 step 3), not to this boundary.
type Adapter struct {
	log       log.Logger
	transport Transport
	detector  *byzantine.Detector
	keyOf     KeyResolver

	// graylist mirrors the teacher's practice of keeping peer exclusion
	// sets behind a synchronized set type rather than an ad hoc locked
	// map (spec §4.3 operator reconciliation).
	graylist *set.Sync[ids.NodeID]
}

// NewAdapter wires a Transport, a KeyResolver for response signatures,
// and a shared Byzantine detector into one NetworkAdapter.
func NewAdapter(transport Transport, keyOf KeyResolver, detector *byzantine.Detector, logger log.Logger) *Adapter {
	return &Adapter{
		log:       logger,
		transport: transport,
		detector:  detector,
		keyOf:     keyOf,
		graylist:  set.NewSync[ids.NodeID](),
	}
}

// Graylist removes peer from the eligible sampling pool until
// Ungraylist is called (spec §4.3 operator reconciliation).
func (a *Adapter) Graylist(peer ids.NodeID) {
	a.graylist.Add(peer)
}

// Ungraylist restores peer to the eligible sampling pool.
func (a *Adapter) Ungraylist(peer ids.NodeID) {
	a.graylist.Remove(peer)
}

// ConnectedPeers returns every connected peer that is neither
// graylisted nor distrusted (spec §4.4 "currently connected peers
// that are not in the graylist and whose reputation is trusted").
func (a *Adapter) ConnectedPeers() []ids.NodeID {
	all := a.transport.ConnectedPeers()
	eligible := make([]ids.NodeID, 0, len(all))
	for _, p := range all {
		if a.graylist.Contains(p) {
			continue
		}
		if a.detector != nil && !a.detector.IsTrusted(p) {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// sampleWithoutReplacement draws up to n peers uniformly at random
// from pool (spec §4.4 "drawn uniformly at random ... without
// replacement"). If pool has fewer than n elements, the whole pool is
// returned in shuffled order.
func sampleWithoutReplacement(pool []ids.NodeID, n int) []ids.NodeID {
	shuffled := make([]ids.NodeID, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// QueryPeers samples params.K eligible peers and queries them
// concurrently for vertexID, collecting signature-verified responses
// until every sampled peer has answered or params.QueryTimeout
// elapses, whichever comes first (spec §4.4). A response whose
// signature fails to verify is reported to the Byzantine detector and
// dropped; it is never returned to the caller.
func (a *Adapter) QueryPeers(ctx context.Context, vertexID ids.ID, params sampling.Parameters) ([]ConsensusResponse, error) {
	eligible := a.ConnectedPeers()
	if len(eligible) < params.MinNetworkSize {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientNetwork, len(eligible), params.MinNetworkSize)
	}

	peers := sampleWithoutReplacement(eligible, params.K)

	qctx, cancel := context.WithTimeout(ctx, params.QueryTimeout)
	defer cancel()

	queryID, err := newRequestID()
	if err != nil {
		return nil, fmt.Errorf("network: generating query id: %w", err)
	}
	query := ConsensusQuery{QueryID: queryID, VertexID: vertexID, Timestamp: uint64(0)}

	var mu sync.Mutex
	var responses []ConsensusResponse

	g, gctx := errgroup.WithContext(qctx)
	for _, peer := range peers {
		peer := peer
		g.Go(func() error {
			resp, err := a.transport.Send(gctx, peer, query)
			if err != nil {
				return nil // a silent/timed-out peer simply doesn't contribute (spec §4.4)
			}
			if resp.ResponderID != peer {
				a.detector.ReportInvalidSignature(peer)
				return nil
			}
			key, ok := a.keyOf(peer)
			if !ok {
				a.detector.ReportInvalidSignature(peer)
				return nil
			}
			if !pq.Verify(key, resp.SignedBytes(), resp.Signature) {
				a.detector.ReportInvalidSignature(peer)
				return nil
			}

			mu.Lock()
			responses = append(responses, resp)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return responses, nil
}

// newRequestID draws a fresh random query identifier. It is not
// derived from vertexID so that repeated queries for the same vertex
// across rounds never collide in a requester-side dedup table.
func newRequestID() (ids.ID, error) {
	var id ids.ID
	_, err := cryptorand.Read(id[:])
	return id, err
}

// BroadcastVertex signs nothing itself — callers pass an
// already-marshaled, already-signed vertex message — and forwards it
// to the transport fire-and-forget (spec §4.4 "Broadcasts new
// vertices to all connected peers").
func (a *Adapter) BroadcastVertex(message []byte) {
	a.transport.Broadcast(message)
}
