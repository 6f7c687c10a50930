// Package bn254 implements the BN254 G1 group as the outer shuffle group C,
// wrapping the gnark-crypto implementation to conform to the ecc.Point
// interface.
package bn254

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/fxamacker/cbor/v2"

	curve "github.com/wu-s-john/legit-poker-sub000/crypto/ecc"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// CurveType is the identifier for this group implementation.
const CurveType = "bn254"

// Generator is the base generator point in Jacobian coordinates.
var Generator bn254.G1Jac

func init() {
	Generator.X.SetOne()
	Generator.Y.SetUint64(2)
	Generator.Z.SetOne()
}

// G1 is the affine representation of a G1 group element.
type G1 struct {
	inner *bn254.G1Affine
	lock  sync.Mutex
}

// New creates a new G1 point (identity element by default).
func (g *G1) New() curve.Point {
	return &G1{inner: new(bn254.G1Affine)}
}

// Order returns the scalar field modulus F_s of the group.
func (g *G1) Order() *big.Int {
	return fr.Modulus()
}

// Add computes a+b and stores the result in the receiver.
func (g *G1) Add(a, b curve.Point) {
	temp := new(bn254.G1Affine)
	temp.Add(a.(*G1).inner, b.(*G1).inner)
	*g.inner = *temp
}

// SafeAdd is a mutex-guarded variant of Add, used when the receiver may be
// shared across goroutines (e.g. an aggregated public key accumulator).
func (g *G1) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.inner.Add(a.(*G1).inner, b.(*G1).inner)
}

// ScalarMult computes scalar*a and stores the result in the receiver.
func (g *G1) ScalarMult(a curve.Point, scalar *big.Int) {
	temp := new(bn254.G1Affine)
	temp.ScalarMultiplication(a.(*G1).inner, scalar)
	*g.inner = *temp
}

// ScalarBaseMult computes scalar*G and stores the result in the receiver.
func (g *G1) ScalarBaseMult(scalar *big.Int) {
	g.inner.ScalarMultiplicationBase(scalar)
}

// Marshal serializes the point to its compressed byte representation.
func (g *G1) Marshal() []byte {
	b := g.inner.Bytes()
	return b[:]
}

// Unmarshal deserializes a point from its compressed byte representation.
func (g *G1) Unmarshal(buf []byte) error {
	_, err := g.inner.SetBytes(buf)
	return err
}

type jsonPoint struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// MarshalJSON serializes the point as decimal-string coordinates.
func (g *G1) MarshalJSON() ([]byte, error) {
	x := g.inner.X.BigInt(new(big.Int))
	y := g.inner.Y.BigInt(new(big.Int))
	return json.Marshal(jsonPoint{X: x.String(), Y: y.String()})
}

// UnmarshalJSON deserializes the point from decimal-string coordinates.
func (g *G1) UnmarshalJSON(buf []byte) error {
	if g.inner == nil {
		g.inner = new(bn254.G1Affine)
	}
	var coords jsonPoint
	if err := json.Unmarshal(buf, &coords); err != nil {
		return err
	}
	x, ok := new(big.Int).SetString(coords.X, 10)
	if !ok {
		return fmt.Errorf("invalid x coordinate %q", coords.X)
	}
	y, ok := new(big.Int).SetString(coords.Y, 10)
	if !ok {
		return fmt.Errorf("invalid y coordinate %q", coords.Y)
	}
	g.inner.X.SetBigInt(x)
	g.inner.Y.SetBigInt(y)
	return nil
}

// MarshalCBOR serializes the point as a two-element CBOR array [x, y].
func (g *G1) MarshalCBOR() ([]byte, error) {
	x := g.inner.X.BigInt(new(big.Int))
	y := g.inner.Y.BigInt(new(big.Int))
	return cbor.Marshal([]*big.Int{x, y})
}

// UnmarshalCBOR deserializes the point from a two-element CBOR array.
func (g *G1) UnmarshalCBOR(buf []byte) error {
	if g.inner == nil {
		g.inner = new(bn254.G1Affine)
	}
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner.X.SetBigInt(coords[0])
	g.inner.Y.SetBigInt(coords[1])
	return nil
}

// Equal reports whether the receiver and a represent the same point.
func (g *G1) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*G1).inner)
}

// Neg computes -a and stores the result in the receiver.
func (g *G1) Neg(a curve.Point) {
	g.inner.Neg(a.(*G1).inner)
}

// SetZero sets the point to the group identity.
func (g *G1) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetZero()
}

// Set copies the value of a into the receiver.
func (g *G1) Set(a curve.Point) {
	g.inner.X.Set(&a.(*G1).inner.X)
	g.inner.Y.Set(&a.(*G1).inner.Y)
}

// SetGenerator sets the point to the group generator G.
func (g *G1) SetGenerator() {
	g.inner.FromJacobian(&Generator)
}

// String returns the hex encoding of the compressed point.
func (g *G1) String() string {
	return fmt.Sprintf("%x", g.Marshal())
}

// Point returns the affine x,y coordinates, over F_b, used to feed a
// Poseidon transcript.
func (g *G1) Point() (*big.Int, *big.Int) {
	return g.inner.X.BigInt(new(big.Int)), g.inner.Y.BigInt(new(big.Int))
}

// SetPoint builds a point directly from affine coordinates.
func (g *G1) SetPoint(x, y *big.Int) curve.Point {
	p := &G1{inner: new(bn254.G1Affine)}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	return p
}

// Type returns the curve type identifier.
func (g *G1) Type() string {
	return CurveType
}
