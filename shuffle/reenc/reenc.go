// Package reenc implements the reencryption Sigma-protocol: proof of
// knowledge of the power vector b, its Pedersen blinding s, and an
// aggregate rerandomization scalar rho linking a Bayer-Groth power
// commitment to the actual rerandomized, permuted output deck.
package reenc

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/crypto/hash/poseidon"
	"github.com/wu-s-john/legit-poker-sub000/crypto/pedersen"
)

var domainTag = big.NewInt(0x5245 /* "RE" */)

// Proof is the non-interactive reencryption Sigma-protocol transcript.
type Proof struct {
	TCom ecc.Point
	TGrp elgamal.Ciphertext
	ZB   []*big.Int
	ZS   *big.Int
	ZRho *big.Int
}

// Prove proves knowledge of (b, s, rho) such that cPower = Com(b; s) and
// MSM(inputs, x-powers) = E(0; rho) * MSM(outputs, b), where rho is the
// negated sum of the per-output rerandomization scalars weighted by b
// (rho = -sum_i b_i * rho_i).
func Prove(
	aggregatedPublicKey ecc.Point,
	params *pedersen.Params,
	inputs, outputs []elgamal.Ciphertext,
	xPowers []*big.Int,
	b []*big.Int, s *big.Int,
	rho *big.Int,
) (Proof, error) {
	n := len(outputs)
	if len(inputs) != n || len(xPowers) != n || len(b) != n {
		return Proof{}, fmt.Errorf("reenc: input/output/power/b vector length mismatch")
	}
	order := aggregatedPublicKey.Order()

	t := make([]*big.Int, n)
	for i := range t {
		v, err := rand.Int(rand.Reader, order)
		if err != nil {
			return Proof{}, fmt.Errorf("reenc: sample blinding t[%d]: %w", i, err)
		}
		t[i] = v
	}
	tS, err := rand.Int(rand.Reader, order)
	if err != nil {
		return Proof{}, fmt.Errorf("reenc: sample blinding t_s: %w", err)
	}
	tRho, err := rand.Int(rand.Reader, order)
	if err != nil {
		return Proof{}, fmt.Errorf("reenc: sample blinding t_rho: %w", err)
	}

	tCom, err := params.Commit(t, tS)
	if err != nil {
		return Proof{}, fmt.Errorf("reenc: commit blinding vector: %w", err)
	}
	tGrp := blindedGroupTerm(aggregatedPublicKey, outputs, t, tRho)

	aggregatedInput := elgamal.MSMCiphertexts(aggregatedPublicKey, inputs, xPowers)
	cPower, err := params.Commit(b, s)
	if err != nil {
		return Proof{}, fmt.Errorf("reenc: recompute c_power: %w", err)
	}

	c := challenge(aggregatedPublicKey.Order(), aggregatedInput, cPower, tCom, tGrp)

	zB := make([]*big.Int, n)
	for i := range zB {
		zB[i] = new(big.Int).Mul(c, b[i])
		zB[i].Add(zB[i], t[i])
		zB[i].Mod(zB[i], order)
	}
	zS := new(big.Int).Mul(c, s)
	zS.Add(zS, tS)
	zS.Mod(zS, order)
	zRho := new(big.Int).Mul(c, rho)
	zRho.Add(zRho, tRho)
	zRho.Mod(zRho, order)

	return Proof{TCom: tCom, TGrp: tGrp, ZB: zB, ZS: zS, ZRho: zRho}, nil
}

// Verify checks V1 (the commitment-opening equation) and V2 (the
// ciphertext-group equation) described in spec 4.4.
func Verify(
	aggregatedPublicKey ecc.Point,
	params *pedersen.Params,
	inputs, outputs []elgamal.Ciphertext,
	xPowers []*big.Int,
	cPower ecc.Point,
	proof Proof,
) error {
	aggregatedInput := elgamal.MSMCiphertexts(aggregatedPublicKey, inputs, xPowers)
	c := challenge(aggregatedPublicKey.Order(), aggregatedInput, cPower, proof.TCom, proof.TGrp)

	// V1: Com(z_b; z_s) =? T_com + c*c_power
	lhs1, err := params.Commit(proof.ZB, proof.ZS)
	if err != nil {
		return fmt.Errorf("reenc: recompute Com(z_b; z_s): %w", err)
	}
	rhs1 := aggregatedPublicKey.New()
	cPowerTerm := aggregatedPublicKey.New()
	cPowerTerm.ScalarMult(cPower, c)
	rhs1.Add(proof.TCom, cPowerTerm)
	if !lhs1.Equal(rhs1) {
		return fmt.Errorf("reenc: V1 fails")
	}

	// V2: E(0; z_rho) * prod(C'_i)^{z_b,i} =? T_grp + c*(aggregatedInput)
	lhs2 := blindedGroupTerm(aggregatedPublicKey, outputs, proof.ZB, proof.ZRho)
	rhs2C1 := aggregatedPublicKey.New()
	rhs2C2 := aggregatedPublicKey.New()
	t1 := aggregatedPublicKey.New()
	t1.ScalarMult(aggregatedInput.C1, c)
	rhs2C1.Add(proof.TGrp.C1, t1)
	t2 := aggregatedPublicKey.New()
	t2.ScalarMult(aggregatedInput.C2, c)
	rhs2C2.Add(proof.TGrp.C2, t2)

	if !lhs2.C1.Equal(rhs2C1) || !lhs2.C2.Equal(rhs2C2) {
		return fmt.Errorf("reenc: V2 fails")
	}
	return nil
}

// blindedGroupTerm computes E(0; blind) * MSM(outputs, weights), the shape
// shared by both T_grp's construction and V2's left-hand side.
func blindedGroupTerm(aggregatedPublicKey ecc.Point, outputs []elgamal.Ciphertext, weights []*big.Int, blind *big.Int) elgamal.Ciphertext {
	zero := elgamal.EncryptWithK(aggregatedPublicKey, big.NewInt(0), blind)
	msm := elgamal.MSMCiphertexts(aggregatedPublicKey, outputs, weights)
	return elgamal.Add(zero, msm)
}

func challenge(order *big.Int, aggregatedInput elgamal.Ciphertext, cPower, tCom ecc.Point, tGrp elgamal.Ciphertext) *big.Int {
	fields := make([]*big.Int, 0, 16)
	addPoint := func(p ecc.Point) {
		x, y := p.Point()
		fields = append(fields, x, y)
	}
	fields = append(fields, domainTag)
	addPoint(aggregatedInput.C1)
	addPoint(aggregatedInput.C2)
	addPoint(cPower)
	addPoint(tCom)
	addPoint(tGrp.C1)
	addPoint(tGrp.C2)

	digest, err := poseidon.MultiPoseidon(fields...)
	if err != nil {
		panic(fmt.Sprintf("reenc: challenge hash failed: %v", err))
	}
	be := digest.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	v := new(big.Int).SetBytes(le)
	v.Mod(v, order)
	if v.Sign() == 0 {
		return big.NewInt(1)
	}
	return v
}
