package elgamal

import (
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
)

// Rerandomize adds a fresh encryption-of-zero layer under the aggregated
// public key, producing a ciphertext of the same plaintext that is
// unlinkable to ct without knowledge of the added nonce. This is the
// per-card operation each shuffler applies during its shuffle-and-prove
// turn, paired with the permutation applied to card positions.
func Rerandomize(aggregatedPublicKey ecc.Point, ct Ciphertext, k *big.Int) Ciphertext {
	c1 := aggregatedPublicKey.New()
	c1.ScalarBaseMult(k)
	c1.Add(c1, ct.C1)

	s := aggregatedPublicKey.New()
	s.ScalarMult(aggregatedPublicKey, k)

	c2 := aggregatedPublicKey.New()
	c2.Add(ct.C2, s)

	return Ciphertext{C1: c1, C2: c2}
}

// Add computes the component-wise homomorphic sum of two ciphertexts,
// corresponding to adding their plaintexts.
func Add(a, b Ciphertext) Ciphertext {
	c1 := a.C1.New()
	c1.Add(a.C1, b.C1)
	c2 := a.C2.New()
	c2.Add(a.C2, b.C2)
	return Ciphertext{C1: c1, C2: c2}
}

// AggregatePublicKeys sums a committee's individual public keys into the
// single aggregated public key the deck is encrypted under.
func AggregatePublicKeys(curve ecc.Point, keys []ecc.Point) ecc.Point {
	agg := curve.New()
	agg.SetZero()
	for _, k := range keys {
		agg.Add(agg, k)
	}
	return agg
}

// MSM computes a multi-scalar multiplication sum_i scalars[i]*points[i],
// used by the Bayer-Groth argument to evaluate linear combinations of
// committed vectors without materializing every intermediate term.
func MSM(curve ecc.Point, points []ecc.Point, scalars []*big.Int) ecc.Point {
	acc := curve.New()
	acc.SetZero()
	for i, p := range points {
		term := curve.New()
		term.ScalarMult(p, scalars[i])
		acc.Add(acc, term)
	}
	return acc
}

// MSMCiphertexts computes msm(cts, scalars) = (sum s_i*cts[i].C1, sum
// s_i*cts[i].C2), the linear combination of ciphertexts used to aggregate
// a shuffle link's inputs under the Bayer-Groth power challenge.
func MSMCiphertexts(curve ecc.Point, cts []Ciphertext, scalars []*big.Int) Ciphertext {
	c1s := make([]ecc.Point, len(cts))
	c2s := make([]ecc.Point, len(cts))
	for i, ct := range cts {
		c1s[i] = ct.C1
		c2s[i] = ct.C2
	}
	return Ciphertext{C1: MSM(curve, c1s, scalars), C2: MSM(curve, c2s, scalars)}
}

// AggregatePowers computes msm(cts, [x^1..x^N]), the aggregated-input
// ciphertext both the Bayer-Groth argument and the reencryption
// Sigma-protocol are defined over.
func AggregatePowers(curve ecc.Point, cts []Ciphertext, x *big.Int) Ciphertext {
	order := curve.Order()
	powers := make([]*big.Int, len(cts))
	p := new(big.Int).Set(x)
	for i := range cts {
		powers[i] = new(big.Int).Mod(p, order)
		p.Mul(p, x)
		p.Mod(p, order)
	}
	return MSMCiphertexts(curve, cts, powers)
}
