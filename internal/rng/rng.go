// Package rng provides the seeded pseudo-random stream that board
// generation and fallback-move synthesis are derived from. The generator
// is a mulberry32: small enough that an outside verifier can reimplement
// it from this file alone. Every random draw in a settled match must be
// reproducible from the revealed seed.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

type RNG struct {
	state uint32
}

func New(seed uint32) *RNG {
	return &RNG{state: seed}
}

// DeriveSeed maps arbitrary seed material to the 32-bit integer seed.
// Decimal strings use their low 32 bits directly so that numeric seeds
// round-trip exactly; anything else is hashed and the big-endian 32-bit
// prefix of the digest is taken.
func DeriveSeed(material string) uint32 {
	if n, err := strconv.ParseUint(material, 10, 64); err == nil {
		return uint32(n)
	}
	sum := sha256.Sum256([]byte(material))
	return binary.BigEndian.Uint32(sum[:4])
}

// FromMaterial is shorthand for New(DeriveSeed(material)).
func FromMaterial(material string) *RNG {
	return New(DeriveSeed(material))
}

func (r *RNG) next() uint32 {
	r.state += 0x6d2b79f5
	z := r.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return z ^ (z >> 14)
}

// Float64 returns the next value of the stream in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.next()) / 4294967296.0
}

// IntN returns a uniform int in [0, n). Panics if n <= 0.
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		panic("rng: IntN called with n <= 0")
	}
	return int(r.Float64() * float64(n))
}

// Shuffle performs a Fisher-Yates shuffle of the integers [0, n) driven
// by the float stream and returns the permutation.
func (r *RNG) Shuffle(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}
