// -----------------------------------------------------------------------------
//  Chaum-Pedersen NIZK proof of equality of discrete logs
//
//  Context (refs):
//   – C. Pedersen & D. Chaum, "Wallet Databases with Observers" (1992)
//   – Helios e-voting scheme (https://doi.org/10.1007/978-3-642-12980-3_9)
//
//  Goal: prove NON-interactively that two pairs of group elements share the
//  same discrete log, without revealing it:
//
//        log_{baseG}(P)  =  log_{baseH}(Q)
//
//  This single statement shape is reused by every proof in this module that
//  needs to bind a secret scalar across two different bases: a shuffler's
//  blinding contribution (log_G A_j = log_{Y-P_u} B_j), a shuffler's
//  unblinding share (log_G pk_j = log_{blinded_base} mu_j), and a
//  shuffler's community-card decryption share (log_G pk_j = log_{c1} share_j).
//
//  The Sigma-protocol is rendered non-interactive with the Fiat-Shamir
//  transform (hashing all public data to obtain the challenge).
//
//  Public data                 Secret held by prover
//  ------------                ----------------------
//    baseG, baseH  group bases    x   the shared discrete log
//    P = x*baseG                  r   fresh random scalar
//    Q = x*baseH
//
//  Prover (BuildDLEQProof):
//    1.  Pick r <- F_s*.
//    2.  A = r*baseG,  B = r*baseH          (commitment)
//    3.  e = H(baseG,baseH,P,Q,A,B) mod order   (Fiat-Shamir)
//    4.  z = r + e*x mod order              (response)
//
//  Verifier (VerifyDLEQProof):
//    Recompute e, then check
//        z*baseG == A + e*P
//        z*baseH == B + e*Q
//  Both must hold for the proof to be accepted.
// -----------------------------------------------------------------------------

package elgamal

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/hash/poseidon"
)

// DLEQProof is a non-interactive Chaum-Pedersen proof that P and Q share
// the same discrete log with respect to baseG and baseH respectively.
type DLEQProof struct {
	A ecc.Point // = r*baseG
	B ecc.Point // = r*baseH
	Z *big.Int  // = r + e*x
}

// BuildDLEQProof proves knowledge of x such that P = x*baseG and Q = x*baseH.
func BuildDLEQProof(x *big.Int, baseG, baseH, P, Q ecc.Point) (DLEQProof, error) {
	order := baseG.Order()

	r, err := rand.Int(rand.Reader, order)
	if err != nil {
		return DLEQProof{}, fmt.Errorf("failed to sample r: %w", err)
	}
	if r.Sign() == 0 {
		r = big.NewInt(1)
	}

	A := baseG.New()
	A.ScalarMult(baseG, r)

	B := baseH.New()
	B.ScalarMult(baseH, r)

	e := hashPointsToScalar(baseG, baseH, P, Q, A, B)

	z := new(big.Int).Mul(e, x)
	z.Add(z, r)
	z.Mod(z, order)

	return DLEQProof{A: A, B: B, Z: z}, nil
}

// VerifyDLEQProof checks a Chaum-Pedersen proof that P and Q share a
// discrete log with respect to baseG and baseH. Returns nil if valid.
func VerifyDLEQProof(baseG, baseH, P, Q ecc.Point, proof DLEQProof) error {
	e := hashPointsToScalar(baseG, baseH, P, Q, proof.A, proof.B)

	left1 := baseG.New()
	left1.ScalarMult(baseG, proof.Z)
	right1 := baseG.New()
	tmp := baseG.New()
	tmp.ScalarMult(P, e)
	right1.Add(proof.A, tmp)
	if !left1.Equal(right1) {
		return fmt.Errorf("dleq proof: first equation fails")
	}

	left2 := baseH.New()
	left2.ScalarMult(baseH, proof.Z)
	right2 := baseH.New()
	tmp2 := baseH.New()
	tmp2.ScalarMult(Q, e)
	right2.Add(proof.B, tmp2)
	if !left2.Equal(right2) {
		return fmt.Errorf("dleq proof: second equation fails")
	}

	return nil
}

// BuildDecryptionProof creates a Chaum-Pedersen NIZK proving that msg is the
// correct decryption of ciphertext ct under privateKey, specialized from
// DLEQProof with baseG=G, baseH=C1, P=publicKey, Q=C2-msg*G.
func BuildDecryptionProof(privateKey *big.Int, publicKey ecc.Point, ct Ciphertext, msg *big.Int) (DLEQProof, error) {
	order := publicKey.Order()
	m := new(big.Int).Mod(msg, order)

	G := publicKey.New()
	G.SetGenerator()

	M := publicKey.New()
	M.ScalarBaseMult(m)

	D := publicKey.New()
	negM := publicKey.New()
	negM.Neg(M)
	D.Add(ct.C2, negM)

	return BuildDLEQProof(privateKey, G, ct.C1, publicKey, D)
}

// VerifyDecryptionProof checks a decryption proof produced by
// BuildDecryptionProof.
func VerifyDecryptionProof(publicKey ecc.Point, ct Ciphertext, msg *big.Int, proof DLEQProof) error {
	order := publicKey.Order()
	m := new(big.Int).Mod(msg, order)

	G := publicKey.New()
	G.SetGenerator()

	M := publicKey.New()
	M.ScalarBaseMult(m)

	D := publicKey.New()
	negM := publicKey.New()
	negM.Neg(M)
	D.Add(ct.C2, negM)

	return VerifyDLEQProof(G, ct.C1, publicKey, D, proof)
}

// hashPointsToScalar hashes a sequence of points to a scalar using
// Poseidon, the Fiat-Shamir transform shared by every proof in this module.
func hashPointsToScalar(pts ...ecc.Point) *big.Int {
	fields := make([]*big.Int, 0, len(pts)*2)
	for _, p := range pts {
		x, y := p.Point()
		fields = append(fields, x, y)
	}
	digest, err := poseidon.MultiPoseidon(fields...)
	if err != nil {
		panic(fmt.Sprintf("failed to hash points: %v", err))
	}
	return digest
}
