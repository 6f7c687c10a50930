// Package shuffle sequences a committee's shuffle-and-prove submissions
// into the deck's shuffle chain, buffering out-of-order submissions and
// verifying each link before advancing to the next.
package shuffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/crypto/pedersen"
	"github.com/wu-s-john/legit-poker-sub000/deck"
	"github.com/wu-s-john/legit-poker-sub000/log"
	"github.com/wu-s-john/legit-poker-sub000/shuffle/bg"
	"github.com/wu-s-john/legit-poker-sub000/shuffle/reenc"
)

// ShufflerID identifies one committee member within a roster.
type ShufflerID string

// Submission is one shuffler's shuffle-and-prove turn: the rerandomized,
// permuted deck plus its Bayer-Groth and reencryption proofs.
type Submission struct {
	Shuffler   ShufflerID
	TurnIndex  int
	Deck       deck.Deck
	BGProof    bg.Proof
	ReencProof reenc.Proof
	// XPowers are x^1..x^N for the Fiat-Shamir challenge x committed to in
	// BGProof, recomputed by the caller and supplied here so the chain
	// need not re-derive the challenge-field reduction itself.
	XPowers []*big.Int
}

// ErrOutOfTurn is returned by Submit when a submission arrives before its
// predecessor in roster order has sealed. Submit has already buffered the
// submission and replays it itself once the chain advances; the error only
// reports that it was not sealed immediately.
var ErrOutOfTurn = errors.New("shuffle: submission out of turn")

// ErrDuplicate is returned when a shuffler's slot has already sealed; the
// duplicate is dropped, not an error condition for the chain itself.
var ErrDuplicate = errors.New("shuffle: duplicate submission for sealed turn")

// Chain sequences one hand's shuffle-and-prove chain across an ordered
// committee roster, verifying each link before admitting it.
type Chain struct {
	mu sync.Mutex

	roster []ShufflerID
	curve  ecc.Point
	params *pedersen.Params
	aggregatedPublicKey ecc.Point

	sealed  []deck.Deck // sealed[0] is D_0, sealed[i+1] is after roster[i]'s turn
	buffered map[int]Submission

	verifiedLinks *lru.Cache[string, bool]
}

// NewChain starts a shuffle chain for roster over the given initial deck.
func NewChain(curve ecc.Point, params *pedersen.Params, aggregatedPublicKey ecc.Point, roster []ShufflerID, initial deck.Deck) (*Chain, error) {
	cache, err := lru.New[string, bool](256)
	if err != nil {
		return nil, fmt.Errorf("shuffle: failed to create verified-link cache: %w", err)
	}
	return &Chain{
		roster:              roster,
		curve:               curve,
		params:              params,
		aggregatedPublicKey: aggregatedPublicKey,
		sealed:              []deck.Deck{initial},
		buffered:            map[int]Submission{},
		verifiedLinks:       cache,
	}, nil
}

// Submit admits sub if it is the next expected turn, verifying its proofs
// against the current deck tip. Out-of-turn submissions are buffered and
// replayed automatically as their predecessors seal.
func (c *Chain) Submit(ctx context.Context, sub Submission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	expected := len(c.sealed) - 1
	if sub.TurnIndex < expected {
		return ErrDuplicate
	}
	if sub.TurnIndex > expected {
		c.buffered[sub.TurnIndex] = sub
		log.Debugw("shuffle: buffered out-of-turn submission", "turn", sub.TurnIndex, "expected", expected)
		return ErrOutOfTurn
	}

	if err := c.sealLocked(sub); err != nil {
		return err
	}

	for {
		next, ok := c.buffered[len(c.sealed)-1]
		if !ok {
			break
		}
		delete(c.buffered, next.TurnIndex)
		if err := c.sealLocked(next); err != nil {
			log.Warnw("shuffle: buffered submission failed verification on replay", "turn", next.TurnIndex, "error", err)
			return err
		}
	}
	return nil
}

// sealLocked verifies sub against the current tip and, if valid, appends it
// to the sealed chain. Caller must hold c.mu.
func (c *Chain) sealLocked(sub Submission) error {
	if err := bg.Verify(c.params, sub.BGProof); err != nil {
		return fmt.Errorf("shuffle: turn %d: bayer-groth verification failed: %w", sub.TurnIndex, err)
	}

	tip := c.sealed[len(c.sealed)-1]
	var inputs, outputs []elgamal.Ciphertext
	for i := range tip {
		inputs = append(inputs, tip[i])
		outputs = append(outputs, sub.Deck[i])
	}
	if err := reenc.Verify(c.aggregatedPublicKey, c.params, inputs, outputs, sub.XPowers, sub.BGProof.CPower, sub.ReencProof); err != nil {
		return fmt.Errorf("shuffle: turn %d: reencryption verification failed: %w", sub.TurnIndex, err)
	}

	c.sealed = append(c.sealed, sub.Deck)
	log.Infow("shuffle: sealed link", "turn", sub.TurnIndex, "shuffler", sub.Shuffler)
	return nil
}

// Complete reports whether every roster member's turn has sealed, and
// returns the terminal deck D_{N_sh} if so.
func (c *Chain) Complete() (deck.Deck, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sealed)-1 == len(c.roster) {
		return c.sealed[len(c.sealed)-1], true
	}
	return deck.Deck{}, false
}
