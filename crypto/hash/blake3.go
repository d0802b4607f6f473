// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hash provides the content hashing primitive used to bind a
// vertex's identity to its canonical fields (spec §4.2: "blake3(bytes)
// -> 32-byte").
package hash

import "github.com/zeebo/blake3"

// Size is the length in bytes of a hash produced by Sum256.
const Size = 32

// Sum256 returns the BLAKE3 hash of data as a fixed 32-byte array.
func Sum256(data []byte) [Size]byte {
	return blake3.Sum256(data)
}

// Sum256Concat hashes the concatenation of parts without an
// intermediate allocation of the joined buffer, matching the
// "id ‖ creator ‖ parents ‖ payload ‖ timestamp" canonical form from
// spec §6.
func Sum256Concat(parts ...[]byte) [Size]byte {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
