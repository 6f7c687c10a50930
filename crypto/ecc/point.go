// Package ecc defines the elliptic-curve group interface shared by every
// cryptographic component in this module: the ElGamal ciphertext algebra,
// the Pedersen vector commitments, and the Bayer-Groth / reencryption
// Sigma-protocols all operate purely against this interface so the
// concrete group (here, BN254's G1) can be swapped without touching the
// protocol code.
package ecc

import "math/big"

// Point represents an element of an elliptic curve group used as the
// "outer" group C from the group-parameters section: all shuffle algebra
// lives in one group with scalar field F_s and base field F_b.
type Point interface {
	// New returns a fresh, independent point on the same curve, set to
	// the identity element.
	New() Point
	// Order returns the order of the group (the scalar field modulus F_s).
	Order() *big.Int

	Add(a, b Point)
	ScalarMult(a Point, scalar *big.Int)
	ScalarBaseMult(scalar *big.Int)

	Marshal() []byte
	Unmarshal(buf []byte) error

	MarshalJSON() ([]byte, error)
	UnmarshalJSON(buf []byte) error
	MarshalCBOR() ([]byte, error)
	UnmarshalCBOR(buf []byte) error

	Equal(a Point) bool
	Neg(a Point)
	SetZero()
	Set(a Point)
	SetGenerator()

	// Point returns the affine x,y coordinates, used to feed a Poseidon
	// transcript (which hashes over the base field F_b).
	Point() (*big.Int, *big.Int)
	SetPoint(x, y *big.Int) Point

	Type() string
	String() string
}
