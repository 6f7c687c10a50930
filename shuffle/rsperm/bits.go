// Package rsperm derives a verifiable permutation of the deck from a single
// field-element seed, using the Rao-Sandelius bit-driven construction: a
// seed-derived bit matrix drives L levels of stable zero-before-one bucket
// partitioning, and the full witness trace is recorded so the permutation
// can later be checked in-circuit via paired grand-product checks.
package rsperm

import (
	"fmt"
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/hash/poseidon"
)

// N is the deck size this package permutes.
const N = 52

// Levels is the number of stable-partition rounds. The spec derives
// Levels = ceil(log2 N) + 1 but pins it at 5 for N=52, matching the fixed
// constant used throughout the rest of this module.
const Levels = 5

// fieldBitLen is the bit length of F_b, the field Poseidon squeezes
// elements from (BN254's scalar field, matching poseidon.Hash's domain).
const fieldBitLen = 254

// usableBitsPerElement is the number of bits retained from each squeezed
// field element after dropping its most- and least-significant bit.
const usableBitsPerElement = fieldBitLen - 2

// ErrInvalidSeed is returned only if bit absorption cannot produce the
// required bit count, which cannot happen for fixed N/Levels in practice.
var ErrInvalidSeed = fmt.Errorf("rsperm: seed absorption produced insufficient bits")

// BitMatrix is a Levels x N matrix of derived bits.
type BitMatrix [Levels][N]bool

// DeriveBits absorbs seed into Poseidon and squeezes enough field elements
// to fill a Levels x N bit matrix, trimming the top and bottom bit of each
// squeezed element before concatenating the bit stream.
func DeriveBits(seed *big.Int) (BitMatrix, error) {
	totalBits := N * Levels
	numElements := (totalBits + usableBitsPerElement - 1) / usableBitsPerElement

	elements, err := poseidon.Squeeze(seed, numElements)
	if err != nil {
		return BitMatrix{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	stream := make([]bool, 0, numElements*usableBitsPerElement)
	for _, e := range elements {
		bits := bitsLEToMSB(e, fieldBitLen)
		// Drop the least-significant bit (index 0) and the
		// most-significant bit (index fieldBitLen-1); keep the rest in
		// LSB-first order.
		stream = append(stream, bits[1:fieldBitLen-1]...)
	}
	if len(stream) < totalBits {
		return BitMatrix{}, ErrInvalidSeed
	}
	stream = stream[:totalBits]

	var m BitMatrix
	for level := 0; level < Levels; level++ {
		for i := 0; i < N; i++ {
			m[level][i] = stream[level*N+i]
		}
	}
	return m, nil
}

// bitsLEToMSB returns the bits of v in LSB-first order, padded/truncated to
// exactly n bits.
func bitsLEToMSB(v *big.Int, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = v.Bit(i) == 1
	}
	return out
}
