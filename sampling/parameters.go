// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sampling defines the consensus engine's tunable parameters
// (spec §4.5), adapted from the teacher's parameter-verification
// idiom: a tagged struct, a Verify() error method, and a
// DefaultParameters() constructor — no flags or env vars (spec §6).
package sampling

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidK reports a non-positive sample size.
	ErrInvalidK = errors.New("sampling: invalid k (sample size)")
	// ErrInvalidAlpha reports an alpha threshold outside (k/2, k].
	ErrInvalidAlpha = errors.New("sampling: invalid alpha threshold")
	// ErrInvalidBeta reports a non-positive beta (streak) threshold.
	ErrInvalidBeta = errors.New("sampling: invalid beta threshold")
	// ErrInvalidTau reports a finalization confidence threshold outside (0, 1].
	ErrInvalidTau = errors.New("sampling: invalid finalization threshold tau")
	// ErrInvalidMaxRounds reports a non-positive round budget.
	ErrInvalidMaxRounds = errors.New("sampling: invalid max rounds")
	// ErrInvalidMinNetworkSize reports a negative minimum network size.
	ErrInvalidMinNetworkSize = errors.New("sampling: invalid min network size")
	// ErrInvalidQueryTimeout reports a non-positive per-round timeout.
	ErrInvalidQueryTimeout = errors.New("sampling: invalid query timeout")
	// ErrInvalidRoundDelay reports a negative inter-round yield.
	ErrInvalidRoundDelay = errors.New("sampling: invalid round delay")
)

// Parameters holds the consensus engine's tunable knobs (spec §4.5).
// Names mirror the spec's glossary (K, Alpha, Beta, Tau) so a reader
// moving between the spec and the code needs no translation table.
type Parameters struct {
	// K is the sample size queried per round.
	K int `json:"k" yaml:"k"`

	// Alpha is the minimum positive-response count for a round to
	// count as successful. Must satisfy alpha > k/2.
	Alpha int `json:"alpha" yaml:"alpha"`

	// Beta is the number of consecutive successful rounds required
	// before finalization is considered.
	Beta int `json:"beta" yaml:"beta"`

	// Tau is the EMA confidence threshold for finalization.
	Tau float64 `json:"tau" yaml:"tau"`

	// MaxRounds bounds how many rounds a vertex may be driven through
	// before consensus gives up (ConsensusTimeout, spec §7).
	MaxRounds int `json:"maxRounds" yaml:"maxRounds"`

	// MinNetworkSize is the minimum connected-peer count the network
	// adapter requires before sampling (InsufficientNetwork, spec §7).
	MinNetworkSize int `json:"minNetworkSize" yaml:"minNetworkSize"`

	// QueryTimeout bounds how long a single round waits for peer
	// responses.
	QueryTimeout time.Duration `json:"queryTimeout" yaml:"queryTimeout"`

	// RoundDelay is the cooperative yield between rounds for the same
	// vertex (spec §5: must be a yield, never a thread-blocking sleep).
	RoundDelay time.Duration `json:"roundDelay" yaml:"roundDelay"`
}

// Verify checks the parameters against spec §4.5/§8's boundary rules,
// rejecting the config at construction rather than failing at
// round-time.
func (p Parameters) Verify() error {
	if p.K <= 0 {
		return fmt.Errorf("%w: k=%d", ErrInvalidK, p.K)
	}
	if p.Alpha <= p.K/2 || p.Alpha > p.K {
		return fmt.Errorf("%w: alpha=%d, k=%d (must satisfy k/2 < alpha <= k)", ErrInvalidAlpha, p.Alpha, p.K)
	}
	if p.Beta <= 0 {
		return fmt.Errorf("%w: beta=%d", ErrInvalidBeta, p.Beta)
	}
	if p.Tau <= 0 || p.Tau > 1 {
		return fmt.Errorf("%w: tau=%v", ErrInvalidTau, p.Tau)
	}
	if p.MaxRounds <= 0 {
		return fmt.Errorf("%w: maxRounds=%d", ErrInvalidMaxRounds, p.MaxRounds)
	}
	if p.MinNetworkSize < 0 {
		return fmt.Errorf("%w: minNetworkSize=%d", ErrInvalidMinNetworkSize, p.MinNetworkSize)
	}
	if p.QueryTimeout <= 0 {
		return fmt.Errorf("%w: queryTimeout=%s", ErrInvalidQueryTimeout, p.QueryTimeout)
	}
	if p.RoundDelay < 0 {
		return fmt.Errorf("%w: roundDelay=%s", ErrInvalidRoundDelay, p.RoundDelay)
	}
	return nil
}

// DefaultParameters returns the defaults spec §4.5 recommends for a
// production-sized network.
func DefaultParameters() Parameters {
	return Parameters{
		K:              30,
		Alpha:          24,
		Beta:           20,
		Tau:            0.95,
		MaxRounds:      1000,
		MinNetworkSize: 4,
		QueryTimeout:   time.Second,
		RoundDelay:     time.Millisecond,
	}
}

// SmallNetworkParameters returns the reduced defaults spec §4.5
// recommends for small/test networks: k = min(n-1, 10).
func SmallNetworkParameters(peerCount int) Parameters {
	k := peerCount - 1
	if k > 10 {
		k = 10
	}
	if k < 1 {
		k = 1
	}
	p := DefaultParameters()
	p.K = k
	p.Alpha = k/2 + 1
	if p.Alpha > k {
		p.Alpha = k
	}
	p.MinNetworkSize = 1
	return p
}
