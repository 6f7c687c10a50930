package rsperm

import "math/big"

// Result is the output of one RS-shuffle permutation draw: the permutation
// itself plus the witness trace proving it was derived honestly from seed.
type Result struct {
	Perm  [N]int
	Trace WitnessTrace
}

// Generate derives a permutation of {0..N-1} from seed via the bit-driven
// stable-partition construction, along with the witness trace needed for
// in-circuit grand-product verification.
func Generate(seed *big.Int) (Result, error) {
	bits, err := DeriveBits(seed)
	if err != nil {
		return Result{}, err
	}
	perm, trace := Permute(bits)
	return Result{Perm: perm, Trace: trace}, nil
}
