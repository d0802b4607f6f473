// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pq implements the post-quantum signature boundary (spec
// §4.2): ML-DSA-87 key generation, signing, and verification over
// vertex and consensus-response hashes. The package keeps no state of
// its own; key material lives only in the KeyPair values it returns.
package pq

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"
)

// SchemeName is the NIST FIPS 204 algorithm this module standardizes
// on. ML-DSA-87 is the highest-security parameter set, matching the
// ~4627-byte signatures spec §3 describes.
const SchemeName = "ML-DSA-87"

var scheme = schemes.ByName(SchemeName)

// SignatureSize is the exact length in bytes of a valid signature
// under the configured scheme.
func SignatureSize() int { return scheme.SignatureSize() }

// PublicKeySize is the exact length in bytes of a valid public key.
func PublicKeySize() int { return scheme.PublicKeySize() }

// PublicKey wraps the scheme's opaque public key so callers outside
// this package never import circl directly.
type PublicKey struct {
	key sign.PublicKey
}

// ParsePublicKey decodes a public key from its wire representation.
func ParsePublicKey(raw []byte) (PublicKey, error) {
	key, err := scheme.UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return PublicKey{}, fmt.Errorf("pq: unmarshal public key: %w", err)
	}
	return PublicKey{key: key}, nil
}

// KeyPair is a generated ML-DSA-87 signing key. A node holds its own
// KeyPair to sign proposed vertices and query responses; it only ever
// holds other peers' PublicKeys, never their private key material.
type KeyPair struct {
	Public  PublicKey
	private sign.PrivateKey
}

// GenerateKeyPair creates a fresh ML-DSA-87 key pair using a CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := scheme.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("pq: generate key: %w", err)
	}
	return KeyPair{Public: PublicKey{key: pub}, private: priv}, nil
}

// Sign produces a detached ML-DSA-87 signature over msg.
func (kp KeyPair) Sign(msg []byte) []byte {
	return scheme.Sign(kp.private, msg, nil)
}

// Verify reports whether sig is a valid ML-DSA-87 signature over msg
// under pub. It fails closed: any malformed input (wrong-length
// signature, nil key) returns false rather than panicking.
func Verify(pub PublicKey, msg, sig []byte) bool {
	if pub.key == nil || len(sig) != scheme.SignatureSize() {
		return false
	}
	return scheme.Verify(pub.key, msg, sig, nil)
}

// RandomSeed returns a cryptographically random seed, exposed for test
// helpers that need deterministic-looking but CSPRNG-backed fixtures.
func RandomSeed(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
