// Package snapshot implements the per-hand table snapshot model: one
// immutable, sequence-numbered, hash-chained record per phase
// (Shuffling, Dealing, the four betting streets, Showdown, Complete).
// It is the single data structure both the dealing dispatcher (which
// reads Dealing snapshots to decide what to announce next) and any
// audit verifier (which replays the sequence to confirm nothing was
// retroactively edited) consume.
package snapshot

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/wu-s-john/legit-poker-sub000/betting"
	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/crypto/hash/poseidon"
	"github.com/wu-s-john/legit-poker-sub000/dealing"
	"github.com/wu-s-john/legit-poker-sub000/decryption"
	"github.com/wu-s-john/legit-poker-sub000/types"
)

// Phase is one of the eight states a hand's snapshot stream passes
// through, in order (Showdown is skipped when the hand ends by fold).
type Phase int

const (
	PhaseShuffling Phase = iota
	PhaseDealing
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseShuffling:
		return "shuffling"
	case PhaseDealing:
		return "dealing"
	case PhasePreflop:
		return "preflop"
	case PhaseFlop:
		return "flop"
	case PhaseTurn:
		return "turn"
	case PhaseRiver:
		return "river"
	case PhaseShowdown:
		return "showdown"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ShufflingState is the Shuffling-phase payload: the expected roster
// order, how many links have sealed so far, and the deck as of the
// latest sealed link.
type ShufflingState struct {
	ExpectedOrder []decryption.ShufflerID
	SealedLinks   int
	LatestDeck    []elgamal.Ciphertext
}

// DealingState is the Dealing-phase payload: the fixed card plan, each
// deal index's current ciphertext, any player-accessible (blinded)
// forms published so far, the seating map, and which community slots
// have completed the reveal protocol. The board release stage itself is
// never stored here — it is derived from these facts via
// dealing.DeriveBoardReleaseStage, both when fanning out deal requests
// and when hashing this state, so it can never drift from them.
type DealingState struct {
	CardPlan           dealing.CardPlan
	Assignments        map[int]elgamal.Ciphertext
	PlayerCiphertexts  map[int]decryption.PlayerAccessibleCiphertext
	SeatPublicKeys     map[int]ecc.Point
	RevealedBoardSlots map[dealing.BoardCardSlot]bool
}

// ToDealingSnapshot projects a Dealing-phase TableSnapshot into the
// shape dealing.Dispatcher consumes, for wiring a dealing.Producer
// against this package's Chain. ok is false if snap is not a
// Dealing-phase snapshot carrying a Dealing payload.
func ToDealingSnapshot(snap *TableSnapshot, shufflers []decryption.ShufflerID) (dealing.DealingSnapshot, bool) {
	if snap.Phase != PhaseDealing || snap.Dealing == nil {
		return dealing.DealingSnapshot{}, false
	}
	d := snap.Dealing
	return dealing.DealingSnapshot{
		GameID:             snap.GameID,
		HandID:             snap.HandID,
		Sequence:           snap.Sequence,
		StateHash:          snap.StateHash.String(),
		Shufflers:          shufflers,
		CardPlan:           d.CardPlan,
		Assignments:        d.Assignments,
		PlayerCiphertexts:  d.PlayerCiphertexts,
		SeatPublicKeys:     d.SeatPublicKeys,
		RevealedBoardSlots: d.RevealedBoardSlots,
	}, true
}

// BettingState is the payload shared by Preflop/Flop/Turn/River
// snapshots: the full betting engine state as of that street.
type BettingState struct {
	Engine *betting.State
}

// ShowdownState is the Showdown-phase payload: the revealed hole cards
// by seat and the final board.
type ShowdownState struct {
	RevealedHoleCards map[int][]int
	Board             [5]int
}

// CompleteState is the terminal payload: awarded pots by seat.
type CompleteState struct {
	Awards map[int]betting.Chips
}

// TableSnapshot is one immutable, sequence-numbered record in a hand's
// snapshot stream. Exactly one of the phase-specific payload fields is
// non-nil, matching Phase.
type TableSnapshot struct {
	GameID        string
	HandID        string
	Sequence      uint64
	Phase         Phase
	StateHash     types.HexBytes
	PrevStateHash types.HexBytes

	Shuffling *ShufflingState
	Dealing   *DealingState
	Betting   *BettingState
	Showdown  *ShowdownState
	Complete  *CompleteState
}

var (
	// ErrSequenceNotIncreasing is returned when a snapshot's sequence
	// does not strictly exceed the last sealed snapshot's.
	ErrSequenceNotIncreasing = errors.New("snapshot: sequence must strictly increase within a hand")
	// ErrStateHashChainBroken is returned when a snapshot's
	// PrevStateHash does not equal the last sealed snapshot's StateHash.
	ErrStateHashChainBroken = errors.New("snapshot: state_hash does not chain from the previous snapshot")
)

// Chain seals a hand's snapshot stream in order, enforcing strictly
// increasing sequence numbers and a valid state_hash chain, and
// computing each snapshot's StateHash as it is sealed.
type Chain struct {
	mu           sync.Mutex
	group        ecc.Point
	hasPrev      bool
	lastSequence uint64
	lastHash     types.HexBytes
}

// NewChain returns an empty chain. group is used only to reduce hash
// inputs into the field Poseidon operates over.
func NewChain(group ecc.Point) *Chain {
	return &Chain{group: group}
}

// Seal validates snap against the chain's last sealed snapshot,
// computes and fills in snap.StateHash, and advances the chain.
// snap.PrevStateHash must already equal the last sealed hash (the
// empty value for the first snapshot of a hand).
func (c *Chain) Seal(snap *TableSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasPrev {
		if snap.Sequence <= c.lastSequence {
			return ErrSequenceNotIncreasing
		}
		if !snap.PrevStateHash.Equal(c.lastHash) {
			return ErrStateHashChainBroken
		}
	} else if len(snap.PrevStateHash) != 0 {
		return ErrStateHashChainBroken
	}

	hash, err := computeStateHash(c.group, snap)
	if err != nil {
		return fmt.Errorf("snapshot: compute state_hash: %w", err)
	}
	snap.StateHash = hash

	c.lastSequence = snap.Sequence
	c.lastHash = hash
	c.hasPrev = true
	return nil
}

// computeStateHash chains a snapshot's identity (game, hand, sequence,
// phase, previous hash) together with a compact per-phase summary into
// a single Poseidon digest. It is a consistency fingerprint, not a
// binding commitment to full snapshot content — per-phase content is
// separately authenticated (shuffle links by Bayer-Groth/reencryption
// proofs, dealt cards by Chaum-Pedersen proofs); this chain only lets
// an observer detect a skipped, reordered, or retroactively-edited
// snapshot.
func computeStateHash(group ecc.Point, snap *TableSnapshot) (types.HexBytes, error) {
	modulus := group.Order()
	reduce := func(b []byte) *big.Int {
		return new(big.Int).Mod(new(big.Int).SetBytes(b), modulus)
	}

	fields := []*big.Int{
		reduce([]byte(snap.GameID)),
		reduce([]byte(snap.HandID)),
		big.NewInt(int64(snap.Sequence)),
		big.NewInt(int64(snap.Phase)),
		reduce(snap.PrevStateHash),
	}

	switch snap.Phase {
	case PhaseShuffling:
		if snap.Shuffling != nil {
			fields = append(fields, big.NewInt(int64(snap.Shuffling.SealedLinks)))
		}
	case PhaseDealing:
		if snap.Dealing != nil {
			stage := dealing.DeriveBoardReleaseStage(snap.Dealing.CardPlan, snap.Dealing.PlayerCiphertexts, snap.Dealing.RevealedBoardSlots)
			fields = append(fields,
				big.NewInt(int64(len(snap.Dealing.Assignments))),
				big.NewInt(int64(len(snap.Dealing.PlayerCiphertexts))),
				big.NewInt(int64(stage)),
			)
		}
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		if snap.Betting != nil && snap.Betting.Engine != nil {
			eng := snap.Betting.Engine
			fields = append(fields,
				big.NewInt(int64(eng.CurrentBet)),
				big.NewInt(int64(eng.LastFullRaiseAmount)),
				big.NewInt(int64(eng.ToAct)),
			)
		}
	case PhaseShowdown:
		if snap.Showdown != nil {
			fields = append(fields, big.NewInt(int64(len(snap.Showdown.RevealedHoleCards))))
		}
	case PhaseComplete:
		if snap.Complete != nil {
			fields = append(fields, big.NewInt(int64(len(snap.Complete.Awards))))
		}
	}

	digest, err := poseidon.MultiPoseidon(fields...)
	if err != nil {
		return nil, err
	}
	return types.HexBytes(digest.Bytes()), nil
}
