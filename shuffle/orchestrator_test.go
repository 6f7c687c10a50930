package shuffle

import (
	"context"
	"math/big"
	"testing"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc/bn254"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/crypto/pedersen"
	"github.com/wu-s-john/legit-poker-sub000/deck"
	"github.com/wu-s-john/legit-poker-sub000/shuffle/bg"
	"github.com/wu-s-john/legit-poker-sub000/shuffle/reenc"
)

func curveGen() ecc.Point {
	p := (&bn254.G1{}).New()
	p.SetGenerator()
	return p
}

// identityShuffleSubmission produces a trivially-honest submission that
// permutes nothing and rerandomizes every card with a fixed nonce, used to
// exercise the chain's sequencing logic without needing a full RS-shuffle
// + Bayer-Groth honest-prover pipeline in this test.
func identityShuffleSubmission(t *testing.T, g ecc.Point, aggregatedPublicKey ecc.Point, params *pedersen.Params, turn int, tip deck.Deck) Submission {
	t.Helper()
	var perm [bg.N]int
	for i := range perm {
		perm[i] = i
	}

	r := big.NewInt(int64(1000 + turn))
	s := big.NewInt(int64(2000 + turn))
	bgProof, err := bg.Prove(params, perm, r, s)
	if err != nil {
		t.Fatalf("bg.Prove: %v", err)
	}

	order := g.Order()
	xPowers := make([]*big.Int, bg.N)
	p := big.NewInt(1)
	for i := 0; i < bg.N; i++ {
		p = new(big.Int).Mul(p, bgProof.X)
		p.Mod(p, order)
		xPowers[i] = new(big.Int).Set(p)
	}
	b := make([]*big.Int, bg.N)
	copy(b, xPowers)

	var out deck.Deck
	rerandNonces := make([]*big.Int, bg.N)
	for i := 0; i < bg.N; i++ {
		rerandNonces[i] = big.NewInt(int64(3000 + turn*100 + i))
		out[i] = elgamal.Rerandomize(aggregatedPublicKey, tip[i], rerandNonces[i])
	}

	rho := big.NewInt(0)
	for i := 0; i < bg.N; i++ {
		term := new(big.Int).Mul(b[i], rerandNonces[i])
		rho.Add(rho, term)
	}
	rho.Neg(rho)
	rho.Mod(rho, order)

	var inputs, outputs []elgamal.Ciphertext
	for i := 0; i < bg.N; i++ {
		inputs = append(inputs, tip[i])
		outputs = append(outputs, out[i])
	}
	reencProof, err := reenc.Prove(aggregatedPublicKey, params, inputs, outputs, xPowers, b, s, rho)
	if err != nil {
		t.Fatalf("reenc.Prove: %v", err)
	}

	return Submission{
		Shuffler:   ShufflerID("shuffler"),
		TurnIndex:  turn,
		Deck:       out,
		BGProof:    bgProof,
		ReencProof: reencProof,
		XPowers:    xPowers,
	}
}

// maliciousShuffleSubmission builds a submission whose Bayer-Groth proof
// commits to a non-bijective vector (every card collapses onto the same
// slot) rather than a genuine permutation. The reencryption proof is left
// zero-valued: bg.Verify must reject before sealLocked ever reaches it.
func maliciousShuffleSubmission(t *testing.T, params *pedersen.Params, turn int, tip deck.Deck) Submission {
	t.Helper()
	var dup [bg.N]int // collides every index onto the same slot: not a bijection

	r := big.NewInt(int64(5000 + turn))
	s := big.NewInt(int64(6000 + turn))
	bgProof, err := bg.Prove(params, dup, r, s)
	if err != nil {
		t.Fatalf("bg.Prove: %v", err)
	}

	return Submission{
		Shuffler:  ShufflerID("malicious"),
		TurnIndex: turn,
		Deck:      tip,
		BGProof:   bgProof,
	}
}

func TestChainRejectsNonPermutationSubmission(t *testing.T) {
	g := curveGen()
	aggregatedPublicKey, _, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	params, err := pedersen.NewParams(g, "chain-malicious-test", bg.N)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}

	initial := deck.New(g)
	roster := []ShufflerID{"a"}
	chain, err := NewChain(g, params, aggregatedPublicKey, roster, initial)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	ctx := context.Background()
	sub := maliciousShuffleSubmission(t, params, 0, initial)
	if err := chain.Submit(ctx, sub); err == nil {
		t.Fatalf("expected a non-permutation shuffle submission to be rejected")
	}
	if _, done := chain.Complete(); done {
		t.Fatalf("chain must not seal a submission whose Bayer-Groth proof was rejected")
	}
}

func TestChainSealsInOrderSubmissions(t *testing.T) {
	g := curveGen()
	aggregatedPublicKey, _, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	params, err := pedersen.NewParams(g, "chain-test", bg.N)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}

	initial := deck.New(g)
	roster := []ShufflerID{"a", "b"}
	chain, err := NewChain(g, params, aggregatedPublicKey, roster, initial)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	ctx := context.Background()
	sub0 := identityShuffleSubmission(t, g, aggregatedPublicKey, params, 0, initial)
	if err := chain.Submit(ctx, sub0); err != nil {
		t.Fatalf("Submit turn 0: %v", err)
	}
	if _, done := chain.Complete(); done {
		t.Fatalf("chain reported complete after one of two turns")
	}

	sub1 := identityShuffleSubmission(t, g, aggregatedPublicKey, params, 1, sub0.Deck)
	if err := chain.Submit(ctx, sub1); err != nil {
		t.Fatalf("Submit turn 1: %v", err)
	}
	if _, done := chain.Complete(); !done {
		t.Fatalf("chain did not report complete after both turns sealed")
	}
}

func TestChainBuffersOutOfTurnSubmission(t *testing.T) {
	g := curveGen()
	aggregatedPublicKey, _, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	params, err := pedersen.NewParams(g, "chain-test-2", bg.N)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}

	initial := deck.New(g)
	roster := []ShufflerID{"a", "b"}
	chain, err := NewChain(g, params, aggregatedPublicKey, roster, initial)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	ctx := context.Background()
	sub0 := identityShuffleSubmission(t, g, aggregatedPublicKey, params, 0, initial)
	sub1 := identityShuffleSubmission(t, g, aggregatedPublicKey, params, 1, sub0.Deck)

	if err := chain.Submit(ctx, sub1); err == nil {
		t.Fatalf("expected out-of-turn submission to be rejected for immediate sealing")
	}
	if err := chain.Submit(ctx, sub0); err != nil {
		t.Fatalf("Submit turn 0: %v", err)
	}
	if _, done := chain.Complete(); !done {
		t.Fatalf("buffered submission was not replayed once its predecessor sealed")
	}
}
