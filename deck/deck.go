// Package deck defines the fixed 52-card deck as a vector of ElGamal
// ciphertexts and the card<->plaintext-exponent mapping used throughout
// the shuffle and decryption protocols.
package deck

import (
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
)

// Size is the number of cards in a standard deck.
const Size = 52

// Deck is a fixed-size, ordered vector of per-card ciphertexts.
type Deck [Size]elgamal.Ciphertext

// CardIndex is a card's plaintext exponent, in [0, Size).
type CardIndex uint8

// New builds the initial deck, encoding card index i as (O, i*G) — the
// identity first coordinate and the card index encoded directly in the
// second, per the group-parameters convention that the initial deck is
// unencrypted under any committee key.
func New(curve ecc.Point) Deck {
	var d Deck
	for i := 0; i < Size; i++ {
		c1 := curve.New()
		c1.SetZero()
		c2 := curve.New()
		c2.ScalarBaseMult(big.NewInt(int64(i)))
		d[i] = elgamal.Ciphertext{C1: c1, C2: c2}
	}
	return d
}

// Rerandomize returns a new deck with every ciphertext permuted by perm and
// rerandomized under aggregatedPublicKey using the supplied per-card
// nonces, i.e. one committee member's shuffle-and-prove turn.
//
// perm[newPosition] = oldPosition: the card previously at oldPosition ends
// up at newPosition in the returned deck.
func Rerandomize(d Deck, aggregatedPublicKey ecc.Point, perm [Size]int, nonces [Size]*big.Int) Deck {
	var out Deck
	for newPos, oldPos := range perm {
		out[newPos] = elgamal.Rerandomize(aggregatedPublicKey, d[oldPos], nonces[newPos])
	}
	return out
}
