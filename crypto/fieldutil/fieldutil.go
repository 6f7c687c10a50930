// Package fieldutil provides small finite-field helpers shared across the
// crypto packages (reducing sampled randomness into a scalar field, etc).
package fieldutil

import "math/big"

// BigToFF reduces iv into the field defined by modulus, matching the
// convention used throughout the shuffle and decryption protocols: scalars
// are always carried pre-reduced so that downstream Poseidon hashing and
// scalar multiplication never operate on an out-of-range value.
func BigToFF(field, iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(field); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, field)
}
