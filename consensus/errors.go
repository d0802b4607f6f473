// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import "errors"

// The error kinds spec §7 names. Recoverable kinds (InvalidSignature,
// Equivocation, QueryTimeout) never surface past the round loop; they
// are handled locally and are not exported here. ErrInvalidVertex is
// the error Propose returns. ErrByzantineNodeDetected and
// ErrPartitionSuspected name non-fatal conditions that RunConsensus
// does not return: it graylists the peer, or flags the vertex for
// Paused, instead.
var (
	// ErrInvalidVertex is the only error Propose returns: malformed
	// structure, hash mismatch, or signature failure at insertion.
	ErrInvalidVertex = errors.New("consensus: invalid vertex")

	// ErrByzantineNodeDetected marks a peer whose reputation dropped
	// below the trust threshold during a round; it is graylisted and
	// excluded from future samples. Not fatal.
	ErrByzantineNodeDetected = errors.New("consensus: byzantine node detected")

	// ErrPartitionSuspected reports that the recent query-timeout rate
	// for a vertex exceeds the partition-suspicion threshold.
	ErrPartitionSuspected = errors.New("consensus: partition suspected")
)

// Result is the terminal outcome of RunConsensus (spec §4.6
// user-visible failure behavior).
type Result int

const (
	// ResultFinalized means the vertex reached finality this call.
	ResultFinalized Result = iota
	// ResultAlreadyFinalized means RunConsensus was called on a vertex
	// that was already finalized; spec §8 requires this to be a no-op.
	ResultAlreadyFinalized
	// ResultNotFinalizedWithinBudget means max_rounds was exhausted.
	ResultNotFinalizedWithinBudget
	// ResultInsufficientNetwork means the connected-peer set stayed
	// below min_network_size for too many consecutive attempts.
	ResultInsufficientNetwork
	// ResultCancelled means the caller's context was cancelled before
	// a terminal result was reached. It is also the Result returned
	// alongside any non-nil error from RunConsensus.
	ResultCancelled
)

func (r Result) String() string {
	switch r {
	case ResultFinalized:
		return "finalized"
	case ResultAlreadyFinalized:
		return "already_finalized"
	case ResultNotFinalizedWithinBudget:
		return "not_finalized_within_budget"
	case ResultInsufficientNetwork:
		return "insufficient_network"
	case ResultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
