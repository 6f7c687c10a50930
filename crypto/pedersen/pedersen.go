// Package pedersen implements linear vector Pedersen commitments over the
// outer shuffle group: Commit(m_1..m_n, r) = r*H + sum_i m_i*G_i. This is
// deliberately NOT a bytes-hash commitment — it is additively homomorphic,
// which both the Bayer-Groth permutation argument and the reencryption
// Sigma-protocol depend on to open linear combinations without revealing
// the committed vector.
package pedersen

import (
	"fmt"
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
)

// Params holds the generator vector G_1..G_n and the blinding generator H
// used by every commitment made against a given vector length. Per the
// group-parameters section, these are process-wide read-only singletons
// derived once (typically via hash-to-curve on fixed domain strings) and
// shared by reference thereafter.
type Params struct {
	G []ecc.Point
	H ecc.Point
}

// NewParams derives n+1 independent generators deterministically from a
// domain-separation label, by hashing (label, index) to a scalar and
// multiplying the group generator by it. This avoids needing a trusted
// hash-to-curve implementation while still producing generators with no
// known discrete-log relation to each other under the random-oracle model.
func NewParams(base ecc.Point, label string, n int) (*Params, error) {
	g := make([]ecc.Point, n)
	for i := 0; i < n; i++ {
		p, err := deriveGenerator(base, fmt.Sprintf("%s/G/%d", label, i))
		if err != nil {
			return nil, err
		}
		g[i] = p
	}
	h, err := deriveGenerator(base, label+"/H")
	if err != nil {
		return nil, err
	}
	return &Params{G: g, H: h}, nil
}

func deriveGenerator(base ecc.Point, label string) (ecc.Point, error) {
	scalar := new(big.Int).SetBytes([]byte(label))
	scalar.Mod(scalar, base.Order())
	if scalar.Sign() == 0 {
		scalar = big.NewInt(1)
	}
	p := base.New()
	p.ScalarBaseMult(scalar)
	return p, nil
}

// Commit computes r*H + sum_i m_i*G_i. len(m) must equal len(p.G).
func (p *Params) Commit(m []*big.Int, r *big.Int) (ecc.Point, error) {
	if len(m) != len(p.G) {
		return nil, fmt.Errorf("pedersen: commitment vector length %d does not match generator count %d", len(m), len(p.G))
	}
	acc := p.H.New()
	acc.ScalarMult(p.H, r)
	for i, mi := range m {
		term := p.H.New()
		term.ScalarMult(p.G[i], mi)
		acc.Add(acc, term)
	}
	return acc, nil
}

// CommitScalar is the n=1 specialization, used by the Bayer-Groth
// grand-product argument's per-index and partial-product commitments.
func CommitScalar(g, h ecc.Point, m, r *big.Int) ecc.Point {
	acc := g.New()
	acc.ScalarMult(g, m)
	rh := g.New()
	rh.ScalarMult(h, r)
	acc.Add(acc, rh)
	return acc
}

// Open verifies that commitment equals Commit(m, r) by recomputing it.
func (p *Params) Open(commitment ecc.Point, m []*big.Int, r *big.Int) (bool, error) {
	recomputed, err := p.Commit(m, r)
	if err != nil {
		return false, err
	}
	return commitment.Equal(recomputed), nil
}
