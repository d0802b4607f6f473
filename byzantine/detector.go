// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package byzantine tracks per-peer reputation and detects the two
// Byzantine behaviors this core gates on (spec §4.3): equivocation
// (distinct votes from the same peer on the same vertex) and invalid
// signatures. It is new relative to the teacher — grounded on the
// teacher's validators package (per-peer state keyed by ids.NodeID,
// manager-style construction) and on confidence's sharded-lock shape
// for the concurrent ledger spec §5 requires.
package byzantine

import (
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// TrustThreshold is the reputation floor above which a peer is
// trusted (spec §4.3): a single equivocation (×0.5) moves a
// previously-trusted peer below it; a single invalid signature
// (×0.9) alone does not.
const TrustThreshold = 0.5

const (
	equivocationPenalty     = 0.5
	invalidSignaturePenalty = 0.9
	goodBehaviorRecovery    = 0.01
)

// peerLedger is one peer's Byzantine-detection record, independently
// locked so that scoring peer X never contends with peer Y (spec §5).
type peerLedger struct {
	mu                sync.Mutex
	reputation        float64
	invalidSignatures uint32
	equivocations     uint32
	votesByVertex     map[ids.ID]map[string]bool // vote bytes -> whether that vote was an equivocation
}

// Detector is the shared, internally-synchronized Byzantine ledger
// (spec §3 "Byzantine ledger").
type Detector struct {
	log log.Logger

	mu    sync.RWMutex // guards the peers map itself, not individual ledgers
	peers map[ids.NodeID]*peerLedger
}

// New creates an empty detector.
func New(logger log.Logger) *Detector {
	return &Detector{
		log:   logger,
		peers: make(map[ids.NodeID]*peerLedger),
	}
}

func (d *Detector) ledgerFor(peer ids.NodeID) *peerLedger {
	d.mu.RLock()
	l, ok := d.peers[peer]
	d.mu.RUnlock()
	if ok {
		return l
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok = d.peers[peer]; ok {
		return l
	}
	l = &peerLedger{reputation: 1.0, votesByVertex: make(map[ids.ID]map[string]bool)}
	d.peers[peer] = l
	return l
}

// ReportInvalidSignature records that peer sent a response whose
// signature failed to verify (spec §4.3): its counter increments and
// its reputation is multiplied by 0.9.
func (d *Detector) ReportInvalidSignature(peer ids.NodeID) {
	l := d.ledgerFor(peer)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.invalidSignatures++
	l.reputation = clamp01(l.reputation * invalidSignaturePenalty)
	d.log.Warn("invalid signature reported", "peer", peer, "reputation", l.reputation)
}

// DetectEquivocation records vote for (peer, vertex) and reports
// whether a distinct vote was already on file for that pair (spec
// §4.3). The first call for a given (peer, vertex, vote) combination
// records it and returns false; a second call with a *different* vote
// bytes for the same (peer, vertex) returns true and halves
// reputation; a repeat of a vote already on file is idempotent — it
// returns the same answer as that vote's first call, with no further
// reputation damage (spec §8 idempotence law).
func (d *Detector) DetectEquivocation(peer ids.NodeID, vertex ids.ID, vote []byte) bool {
	l := d.ledgerFor(peer)
	l.mu.Lock()
	defer l.mu.Unlock()

	seen, ok := l.votesByVertex[vertex]
	if !ok {
		seen = make(map[string]bool, 1)
		l.votesByVertex[vertex] = seen
	}

	key := string(vote)
	if equivocated, already := seen[key]; already {
		return equivocated
	}

	equivocated := len(seen) > 0
	seen[key] = equivocated
	if !equivocated {
		return false
	}

	l.equivocations++
	l.reputation = clamp01(l.reputation * equivocationPenalty)
	d.log.Warn("equivocation detected", "peer", peer, "vertex", vertex, "reputation", l.reputation)
	return true
}

// RecordAccepted applies the good-behavior recovery rule (spec §4.3)
// for a response that made it all the way through filtering into a
// confidence update.
func (d *Detector) RecordAccepted(peer ids.NodeID) {
	l := d.ledgerFor(peer)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reputation = clamp01(l.reputation + goodBehaviorRecovery)
}

// IsTrusted reports whether peer's reputation is strictly above
// TrustThreshold. An unknown peer starts at reputation 1.0 and is
// therefore trusted.
func (d *Detector) IsTrusted(peer ids.NodeID) bool {
	return d.Reputation(peer) > TrustThreshold
}

// Reputation returns peer's current reputation, read-only.
func (d *Detector) Reputation(peer ids.NodeID) float64 {
	l := d.ledgerFor(peer)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reputation
}

// ResetPeer clears peer's record entirely — fresh reputation and an
// empty vote ledger — for operator-triggered reconciliation (spec
// §4.3, §12).
func (d *Detector) ResetPeer(peer ids.NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[peer] = &peerLedger{reputation: 1.0, votesByVertex: make(map[ids.ID]map[string]bool)}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
