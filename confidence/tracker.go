// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package confidence owns the per-vertex numeric state the consensus
// engine updates every round (spec §4.6): an EMA-smoothed confidence
// score and a consecutive-success streak. The shape mirrors the
// teacher's threshold trackers (sharded by ID, RecordPoll /
// RecordUnsuccessfulPoll, clamped counters) but the update rule itself
// is this spec's continuous EMA rather than a streak-only snowball.
package confidence

import (
	"sync"

	"github.com/luxfi/ids"
)

// state is one vertex's tracked numeric state, independently locked so
// that updating vertex X never contends with vertex Y (spec §5 forbids
// a single coarse lock over the consensus state) — the same
// per-entry-lock shape as dag.entry and byzantine.peerLedger.
type state struct {
	mu                   sync.Mutex
	confidence           float64
	consecutiveSuccesses uint32
	totalQueries         uint32
}

// Tracker owns ConsensusState's confidence_scores / consecutive_successes
// / total_queries maps (spec §3), sharded per vertex.
type Tracker struct {
	mu     sync.RWMutex // guards the states map itself, not individual entries
	states map[ids.ID]*state
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{states: make(map[ids.ID]*state)}
}

// entryFor returns id's state, creating it on first use.
func (t *Tracker) entryFor(id ids.ID) *state {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.states[id]; ok {
		return s
	}
	s = &state{}
	t.states[id] = s
	return s
}

// Update applies one round's result to vertex id's state (spec §4.5.2
// steps 5-7):
//
//	confidence <- 0.9*confidence + 0.1*ratio   (only on a non-empty round)
//	consecutiveSuccesses <- +1 on success, 0 otherwise
//	totalQueries <- +1 always
//
// empty reports whether the round had zero verified, trusted
// responses (spec §4.5.2 step 4): in that case confidence is left
// untouched and the streak is reset to exactly zero, not decremented.
func (t *Tracker) Update(id ids.ID, ratio float64, success, empty bool) (newConfidence float64) {
	s := t.entryFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !empty {
		s.confidence = clamp01(0.9*s.confidence + 0.1*ratio)
	}
	if success {
		s.consecutiveSuccesses++
	} else {
		s.consecutiveSuccesses = 0
	}
	s.totalQueries++

	return s.confidence
}

// Get returns the current (confidence, consecutiveSuccesses,
// totalQueries) for id. A vertex with no recorded rounds yet reads as
// the zero state (0.0, 0, 0).
func (t *Tracker) Get(id ids.ID) (confidence float64, consecutiveSuccesses, totalQueries uint32) {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if !ok {
		return 0, 0, 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confidence, s.consecutiveSuccesses, s.totalQueries
}

// Reset clears id's tracked state, used on explicit partition recovery
// (spec §4.6).
func (t *Tracker) Reset(id ids.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}

// ResetStreak sets id's consecutive-success streak to exactly zero
// without touching its confidence or query count; the engine uses it
// when id loses a conflict (spec §4.5.4).
func (t *Tracker) ResetStreak(id ids.ID) {
	s := t.entryFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveSuccesses = 0
}

// SetConfidence forcibly overrides id's confidence, used only by the
// finality step to pin a just-finalized vertex to 1.0 (spec §4.5.3)
// without disturbing its query/streak counters.
func (t *Tracker) SetConfidence(id ids.ID, confidence float64) {
	s := t.entryFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confidence = clamp01(confidence)
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
