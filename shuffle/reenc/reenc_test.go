package reenc

import (
	"math/big"
	"testing"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc/bn254"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/crypto/pedersen"
)

func newCurve() ecc.Point {
	p := (&bn254.G1{}).New()
	p.SetGenerator()
	return p
}

func TestProveThenVerifySucceedsOnHonestWitness(t *testing.T) {
	g := newCurve()
	aggregatedPublicKey, _, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	const n = 4
	inputs := make([]elgamal.Ciphertext, n)
	outputs := make([]elgamal.Ciphertext, n)
	rerandNonces := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		ct, _, err := elgamal.Encrypt(aggregatedPublicKey, big.NewInt(int64(i)))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		inputs[i] = ct
		rerandNonces[i] = big.NewInt(int64(100 + i))
		outputs[i] = elgamal.Rerandomize(aggregatedPublicKey, ct, rerandNonces[i])
	}

	x := big.NewInt(3)
	order := g.Order()
	xPowers := make([]*big.Int, n)
	p := big.NewInt(1)
	for i := 0; i < n; i++ {
		p = new(big.Int).Mul(p, x)
		p.Mod(p, order)
		xPowers[i] = new(big.Int).Set(p)
	}

	// honest prover: b_i = x^{i+1} for the identity permutation, matching
	// outputs[i] being the rerandomization (not permutation) of inputs[i].
	b := make([]*big.Int, n)
	copy(b, xPowers)

	rho := big.NewInt(0)
	for i := 0; i < n; i++ {
		term := new(big.Int).Mul(b[i], rerandNonces[i])
		rho.Add(rho, term)
	}
	rho.Neg(rho)
	rho.Mod(rho, order)

	params, err := pedersen.NewParams(g, "reenc-test", n)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	s := big.NewInt(77)
	cPower, err := params.Commit(b, s)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	proof, err := Prove(aggregatedPublicKey, params, inputs, outputs, xPowers, b, s, rho)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if err := Verify(aggregatedPublicKey, params, inputs, outputs, xPowers, cPower, proof); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
