// Package poseidon wraps the iden3 Poseidon sponge as the random oracle
// used for every Fiat-Shamir transcript in this module: the RS permutation
// bit derivation, the Bayer-Groth challenges, the reencryption
// Sigma-protocol challenge, and the two-phase decryption proofs. Poseidon
// operates over the base field F_b of the outer shuffle group.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// MultiPoseidon hashes a variable number of field elements. Inputs beyond
// the native width (16) are absorbed in chunks, and the resulting chunk
// digests are recursively hashed together until a single digest remains.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("poseidon: no inputs provided")
	}

	if len(inputs) <= 16 {
		return poseidon.Hash(inputs)
	}

	numChunks := (len(inputs) + 15) / 16
	hashes := make([]*big.Int, 0, numChunks)
	for i := 0; i < len(inputs); i += 16 {
		end := min(i+16, len(inputs))
		hash, err := poseidon.Hash(inputs[i:end])
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}

	if len(hashes) == 1 {
		return hashes[0], nil
	}
	if len(hashes) <= 16 {
		return poseidon.Hash(hashes)
	}
	return MultiPoseidon(hashes...)
}

// Squeeze derives n field elements from a seed by hashing the seed together
// with an incrementing counter, giving a cheap extendable-output construction
// on top of the fixed-arity Poseidon permutation. Used by the RS shuffle's
// bit-derivation step, which needs many more field elements than a single
// Poseidon call produces.
func Squeeze(seed *big.Int, n int) ([]*big.Int, error) {
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		h, err := poseidon.Hash([]*big.Int{seed, big.NewInt(int64(i))})
		if err != nil {
			return nil, fmt.Errorf("poseidon squeeze at index %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}
