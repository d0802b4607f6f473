// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus implements the engine that drives Avalanche-style
// rounds over vertices in the DAG (spec §4.5): it assembles peer
// samples through the network adapter, filters responses through the
// Byzantine detector, updates the confidence tracker, and checks the
// finality predicate every round.
package consensus

import (
	"context"
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vertexdag/consensus/byzantine"
	"github.com/vertexdag/consensus/confidence"
	"github.com/vertexdag/consensus/crypto/pq"
	"github.com/vertexdag/consensus/dag"
	"github.com/vertexdag/consensus/finality"
	"github.com/vertexdag/consensus/network"
	"github.com/vertexdag/consensus/sampling"
	"github.com/vertexdag/consensus/set"
)

// maxConsecutiveInsufficientNetwork bounds how many backoff retries
// RunConsensus absorbs for InsufficientNetwork before surfacing it as
// a terminal result (spec §7 describes the pause/retry behavior but
// leaves its bound to the implementation — see DESIGN.md).
const maxConsecutiveInsufficientNetwork = 10

// partitionSuspicionWindow and partitionSuspicionRatio implement the
// PartitionSuspected heuristic spec §7 describes only loosely ("query
// timeout rate exceeds a threshold, e.g. >50% of recent rounds") — see
// DESIGN.md for the resolution.
const partitionSuspicionWindow = 20
const partitionSuspicionRatio = 0.5

// Adapter is the subset of network.Adapter's behavior the engine
// depends on, kept as an interface so tests can substitute a fake
// without standing up a real Transport.
type Adapter interface {
	QueryPeers(ctx context.Context, vertexID ids.ID, params sampling.Parameters) ([]network.ConsensusResponse, error)
	BroadcastVertex(message []byte)
	ConnectedPeers() []ids.NodeID
}

// Engine is the consensus coordinator (spec §3 "Consensus engine").
type Engine struct {
	log      log.Logger
	dag      *dag.DAG
	tracker  *confidence.Tracker
	detector *byzantine.Detector
	adapter  Adapter
	params   sampling.Parameters
	metrics  *metrics
	oracle   ConflictOracle

	selfID  dag.PeerID
	selfKey pq.KeyPair

	mu          sync.Mutex
	emptyStreak map[ids.ID][]bool // recent query-emptiness per vertex, for PartitionSuspected
	paused      map[ids.ID]bool
	graylisted  *set.Sync[ids.NodeID]
}

// NoOpConflictOracle declares every pair compatible — used when the
// application has no conflict semantics to wire in.
func NoOpConflictOracle(dag.Vertex, dag.Vertex) bool { return false }

// NewEngine wires a DAG, confidence tracker, Byzantine detector, and
// network adapter into one consensus Engine for a single local node
// identity (spec §4.5).
func NewEngine(
	d *dag.DAG,
	tracker *confidence.Tracker,
	detector *byzantine.Detector,
	adapter Adapter,
	selfID dag.PeerID,
	selfKey pq.KeyPair,
	params sampling.Parameters,
	oracle ConflictOracle,
	logger log.Logger,
	registerer prometheus.Registerer,
) (*Engine, error) {
	if err := params.Verify(); err != nil {
		return nil, fmt.Errorf("consensus: %w", err)
	}
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("consensus: registering metrics: %w", err)
	}
	if oracle == nil {
		oracle = NoOpConflictOracle
	}
	return &Engine{
		log:         logger,
		dag:         d,
		tracker:     tracker,
		detector:    detector,
		adapter:     adapter,
		params:      params,
		metrics:     m,
		oracle:      oracle,
		selfID:      selfID,
		selfKey:     selfKey,
		emptyStreak: make(map[ids.ID][]bool),
		paused:      make(map[ids.ID]bool),
		graylisted:  set.NewSync[ids.NodeID](),
	}, nil
}

// Propose builds, signs, and inserts a new vertex for payload, picking
// parents per spec §4.5.1, then broadcasts it and returns its ID.
// Propose returns a non-nil error only for ErrInvalidVertex (spec §7
// "propose returns an error only for InvalidVertex").
func (e *Engine) Propose(payload []byte) (dag.ID, error) {
	parents := SelectParents(e.dag, time.Now())

	id, err := newVertexID()
	if err != nil {
		return dag.ID{}, fmt.Errorf("%w: generating id: %v", ErrInvalidVertex, err)
	}

	v := dag.Vertex{
		ID:        id,
		Creator:   e.selfID,
		Parents:   parents,
		Payload:   payload,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
	v.Hash = v.ComputeHash()
	v.Signature = e.selfKey.Sign(v.Hash[:])

	if err := e.dag.AddVertex(v); err != nil {
		return dag.ID{}, fmt.Errorf("%w: %v", ErrInvalidVertex, err)
	}

	e.adapter.BroadcastVertex(v.Marshal())
	return v.ID, nil
}

// RunConsensus drives rounds for vertexID until it is finalized,
// max_rounds is exhausted, the network stays insufficient for too
// long, or ctx is cancelled (spec §4.5.2, §4.5). Calling it on an
// already-finalized vertex is a no-op (spec §8).
func (e *Engine) RunConsensus(ctx context.Context, vertexID ids.ID) (Result, error) {
	if v, err := e.dag.GetVertex(vertexID); err == nil && v.Metadata.Finalized {
		return ResultAlreadyFinalized, nil
	}

	consecutiveInsufficient := 0
	for {
		select {
		case <-ctx.Done():
			return ResultCancelled, nil
		default:
		}

		done, err := e.tryFinalize(vertexID)
		if err != nil {
			return ResultCancelled, err
		}
		if done {
			return ResultFinalized, nil
		}

		responses, err := e.adapter.QueryPeers(ctx, vertexID, e.params)
		if err != nil {
			if errors.Is(err, network.ErrInsufficientNetwork) {
				consecutiveInsufficient++
				e.metrics.insufficientNet.Inc()
				e.log.Warn("insufficient network, backing off", "vertex", vertexID, "attempt", consecutiveInsufficient)
				if consecutiveInsufficient >= maxConsecutiveInsufficientNetwork {
					return ResultInsufficientNetwork, nil
				}
				if !e.sleepOrCancel(ctx, e.params.RoundDelay) {
					return ResultCancelled, nil
				}
				continue
			}
			return ResultCancelled, err
		}
		consecutiveInsufficient = 0

		if err := e.runRound(vertexID, responses); err != nil {
			return ResultCancelled, err
		}
		e.metrics.roundsTotal.Inc()

		// Step 8 (finality check) precedes step 9 (round-budget check,
		// spec §4.5.2): a vertex that first qualifies on exactly the
		// max_rounds-th round must still finalize, not be reported
		// NotFinalizedWithinBudget.
		done, err = e.tryFinalize(vertexID)
		if err != nil {
			return ResultCancelled, err
		}
		if done {
			return ResultFinalized, nil
		}

		_, _, totalQueries := e.tracker.Get(vertexID)
		if totalQueries >= uint32(e.params.MaxRounds) {
			return ResultNotFinalizedWithinBudget, nil
		}

		if !e.sleepOrCancel(ctx, e.params.RoundDelay) {
			return ResultCancelled, nil
		}
	}
}

// tryFinalize checks spec §4.5.2 step 8 and, if satisfied, attempts to
// finalize vertexID. The attempt itself can still leave vertexID
// unfinalized if it conflicts with an already-finalized vertex or
// loses to a competitor (spec §4.5.4) — done reports only the case
// where vertexID actually finalized, which is the sole condition under
// which RunConsensus may report ResultFinalized.
func (e *Engine) tryFinalize(vertexID ids.ID) (done bool, err error) {
	ok, err := finality.CanFinalize(vertexID, e.dag, e.tracker, e.params)
	if err != nil || !ok {
		return false, err
	}
	return e.finalizeAndResolveConflicts(vertexID)
}

// runRound implements spec §4.5.2 steps 3-7: Byzantine filtering,
// ratio computation, and the confidence/streak update. The updated
// confidence and streak are mirrored into the vertex's DAG metadata,
// which parent selection and conflict resolution read.
func (e *Engine) runRound(vertexID ids.ID, responses []network.ConsensusResponse) error {
	start := time.Now()
	defer func() { e.metrics.roundDuration.Observe(time.Since(start).Seconds()) }()

	retained := make([]network.ConsensusResponse, 0, len(responses))
	for _, r := range responses {
		vote := voteBytes(r.Vote)
		if e.detector.DetectEquivocation(r.ResponderID, vertexID, vote) {
			e.metrics.byzantineEvents.Inc()
			continue
		}
		if !e.detector.IsTrusted(r.ResponderID) {
			e.metrics.byzantineEvents.Inc()
			e.graylist(r.ResponderID)
			continue
		}
		e.detector.RecordAccepted(r.ResponderID)
		retained = append(retained, r)
	}

	e.recordEmptyRound(vertexID, len(responses) == 0)

	total := len(retained)
	if total == 0 {
		e.tracker.Update(vertexID, 0, false, true)
		return e.mirrorTrackerState(vertexID)
	}

	positive := 0
	for _, r := range retained {
		if r.Vote {
			positive++
		}
	}
	ratio := float64(positive) / float64(total)
	success := positive >= e.params.Alpha
	e.tracker.Update(vertexID, ratio, success, false)
	return e.mirrorTrackerState(vertexID)
}

func (e *Engine) mirrorTrackerState(vertexID ids.ID) error {
	conf, successes, _ := e.tracker.Get(vertexID)
	return e.dag.UpdateMetadata(vertexID, func(m *dag.Metadata) {
		m.Confidence = conf
		m.ConsecutiveSuccesses = successes
	})
}

// finalizeAndResolveConflicts applies spec §4.5.4 against every other
// vertex sharing a parent with vertexID, then performs spec §4.5.3's
// finalization mutation — unless vertexID is blocked by a conflict.
// Finalization is blocked, and vertexID's streak reset to keep the
// round loop driving it, in two cases (spec §4.5.4, scenario S5):
// vertexID conflicts with a vertex that is already finalized, or
// vertexID loses the tie-break against a still-competing vertex.
// Blocking is never itself an error; the returned bool reports
// whether vertexID actually finalized.
func (e *Engine) finalizeAndResolveConflicts(vertexID dag.ID) (bool, error) {
	v, err := e.dag.GetVertex(vertexID)
	if err != nil {
		return false, err
	}

	for _, other := range e.dag.AllVertices() {
		if other.ID == vertexID {
			continue
		}
		if !Conflicts(v, other, e.oracle) {
			continue
		}

		if other.Metadata.Finalized {
			e.tracker.ResetStreak(vertexID)
			if err := e.dag.UpdateMetadata(vertexID, func(m *dag.Metadata) { m.ConsecutiveSuccesses = 0 }); err != nil {
				return false, err
			}
			return false, nil
		}

		winner, loser := ResolveConflict(v, other)
		if winner.ID != vertexID {
			// vertexID lost to a still-competing vertex: reset its
			// streak and leave it unfinalized (spec §4.5.4).
			e.tracker.ResetStreak(vertexID)
			if err := e.dag.UpdateMetadata(vertexID, func(m *dag.Metadata) { m.ConsecutiveSuccesses = 0 }); err != nil {
				return false, err
			}
			return false, nil
		}
		e.tracker.ResetStreak(loser.ID)
		if err := e.dag.UpdateMetadata(loser.ID, func(m *dag.Metadata) { m.ConsecutiveSuccesses = 0 }); err != nil {
			return false, err
		}
	}

	if err := finality.Finalize(vertexID, e.dag, e.tracker); err != nil {
		return false, err
	}
	e.metrics.finalizedTotal.Inc()
	return true, nil
}

// sleepOrCancel yields for d (spec §5's cooperative, non-blocking
// yield) and reports whether the wait completed normally (false means
// ctx was cancelled first).
func (e *Engine) sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// recordEmptyRound tracks the last partitionSuspicionWindow rounds'
// emptiness for vertexID and graylists nothing itself — PartitionSuspected
// is a vertex-level pause signal the caller (e.g. a supervisor) can
// observe via Paused.
func (e *Engine) recordEmptyRound(vertexID ids.ID, empty bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	window := append(e.emptyStreak[vertexID], empty)
	if len(window) > partitionSuspicionWindow {
		window = window[len(window)-partitionSuspicionWindow:]
	}
	e.emptyStreak[vertexID] = window

	if len(window) < partitionSuspicionWindow {
		return
	}
	emptyCount := 0
	for _, v := range window {
		if v {
			emptyCount++
		}
	}
	e.paused[vertexID] = float64(emptyCount)/float64(len(window)) > partitionSuspicionRatio
}

// Paused reports whether vertexID is currently flagged PartitionSuspected.
func (e *Engine) Paused(vertexID ids.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused[vertexID]
}

func (e *Engine) graylist(peer ids.NodeID) {
	e.graylisted.Add(peer)
	if g, ok := e.adapter.(interface{ Graylist(ids.NodeID) }); ok {
		g.Graylist(peer)
	}
}

func voteBytes(vote bool) []byte {
	if vote {
		return []byte("vote:true")
	}
	return []byte("vote:false")
}

func newVertexID() (dag.ID, error) {
	var id dag.ID
	_, err := cryptorand.Read(id[:])
	return id, err
}
