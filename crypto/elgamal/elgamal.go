// Package elgamal implements exponential ElGamal ciphertext algebra over
// the outer shuffle group: encryption, homomorphic layering, aggregated
// public keys, and the bounded discrete-log recovery used to turn a
// decrypted group element back into a card index.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/fieldutil"
)

// Ciphertext is an exponential ElGamal ciphertext (C1, C2) = (k*G, m*G + k*P).
type Ciphertext struct {
	C1 ecc.Point
	C2 ecc.Point
}

// RandK draws a fresh encryption/rerandomization nonce reduced into the
// scalar field of curve.
func RandK(curve ecc.Point) (*big.Int, error) {
	kBytes := make([]byte, 40)
	if _, err := rand.Read(kBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	k := new(big.Int).SetBytes(kBytes)
	return fieldutil.BigToFF(curve.Order(), k), nil
}

// Encrypt encrypts msg (already encoded as an exponent) under publicKey
// with a freshly drawn nonce, returning the ciphertext and the nonce used.
func Encrypt(publicKey ecc.Point, msg *big.Int) (Ciphertext, *big.Int, error) {
	k, err := RandK(publicKey)
	if err != nil {
		return Ciphertext{}, nil, err
	}
	return EncryptWithK(publicKey, msg, k), k, nil
}

// EncryptWithK encrypts msg under publicKey using the supplied nonce k.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) Ciphertext {
	order := pubKey.Order()
	m := new(big.Int).Mod(msg, order)

	c1 := pubKey.New()
	c1.ScalarBaseMult(k)

	s := pubKey.New()
	s.ScalarMult(pubKey, k)

	mPoint := pubKey.New()
	mPoint.ScalarBaseMult(m)

	c2 := pubKey.New()
	c2.Add(mPoint, s)

	return Ciphertext{C1: c1, C2: c2}
}

// GenerateKey generates a new ElGamal key pair over curve.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	order := curve.Order()
	d, err := rand.Int(rand.Reader, order)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1)
	}
	publicKey = curve.New()
	publicKey.SetGenerator()
	publicKey.ScalarMult(publicKey, d)
	return publicKey, d, nil
}

// Decrypt recovers the plaintext point M = C2 - d*C1 and searches for the
// discrete log of M in [0, maxMessage], the card-index recovery step used
// once a ciphertext has been fully unblinded.
func Decrypt(privateKey *big.Int, ct Ciphertext, maxMessage uint64) (M ecc.Point, message *big.Int, err error) {
	if privateKey == nil || privateKey.Sign() <= 0 {
		return nil, nil, fmt.Errorf("decrypt: empty or non-positive private key")
	}
	if maxMessage == 0 {
		return nil, nil, fmt.Errorf("decrypt: maxMessage == 0")
	}

	M = ct.C2.New()
	M.Set(ct.C2)

	tmp := ct.C1.New()
	tmp.ScalarMult(ct.C1, privateKey)
	tmp.Neg(tmp)
	M.Add(M, tmp)

	G := ct.C1.New()
	G.SetGenerator()
	message, err = BabyStepGiantStepECC(M, G, maxMessage)
	if err != nil {
		return nil, nil, err
	}
	return M, message, nil
}

// BabyStepGiantStepECC recovers the exponent m such that beta = m*alpha for
// m in [0, max], using the standard baby-step/giant-step tradeoff. Card
// indices are bounded (0..51), so this always terminates quickly.
func BabyStepGiantStepECC(beta, alpha ecc.Point, max uint64) (*big.Int, error) {
	m := new(big.Int).Sqrt(new(big.Int).SetUint64(max))
	if new(big.Int).Mul(m, m).Cmp(new(big.Int).SetUint64(max)) < 0 {
		m.Add(m, big.NewInt(1))
	}
	mU64 := m.Uint64()

	baby := alpha.New()
	baby.SetZero()
	table := make(map[string]uint64, mU64+1)
	for j := uint64(0); j < mU64; j++ {
		table[pointKey(baby)] = j
		baby.Add(baby, alpha)
	}

	c := alpha.New()
	c.ScalarMult(alpha, m)
	c.Neg(c)

	giant := beta.New()
	giant.Set(beta)
	for i := uint64(0); i <= mU64; i++ {
		if j, ok := table[pointKey(giant)]; ok {
			x := new(big.Int).SetUint64(i*mU64 + j)
			if x.Cmp(new(big.Int).SetUint64(max)) <= 0 {
				return x, nil
			}
		}
		giant.Add(giant, c)
	}
	return nil, fmt.Errorf("bsgs: discrete log not found in interval [0,%d]", max)
}

func pointKey(p ecc.Point) string {
	return string(p.Marshal())
}

// CheckK reports whether k was the nonce used to produce c1, without
// requiring the private key or a discrete-log search.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	check := c1.New()
	check.ScalarBaseMult(k)
	return check.Equal(c1)
}
