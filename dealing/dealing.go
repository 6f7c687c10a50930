// Package dealing watches a hand's snapshot stream and fans out the
// shuffler-facing signals that drive the two-phase decryption protocol:
// one DealingPhaseStarted signal per hand, then exactly one blinding or
// unblinding (or community-blinding) request per (game, hand, deal
// index, phase), idempotent across repeated observations of the same
// snapshot.
package dealing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/decryption"
)

// CardDestination is where one deal-index position in the shuffled deck
// ends up: a seat's hole card, a board slot, a burn card, or unused.
type CardDestination struct {
	Kind       CardDestinationKind
	Seat       int
	HoleIndex  int
	BoardIndex int
}

type CardDestinationKind int

const (
	DestinationHole CardDestinationKind = iota
	DestinationBoard
	DestinationBurn
	DestinationUnused
)

// CardPlan maps a deal index (position in the shuffled deck) to its
// destination, fixed once dealing begins for a hand.
type CardPlan map[int]CardDestination

// BoardCardSlot locates a community card within the board.
type BoardCardSlot int

const (
	SlotFlop0 BoardCardSlot = iota
	SlotFlop1
	SlotFlop2
	SlotTurn
	SlotRiver
)

func boardSlotFromIndex(index int) (BoardCardSlot, bool) {
	switch index {
	case 0:
		return SlotFlop0, true
	case 1:
		return SlotFlop1, true
	case 2:
		return SlotFlop2, true
	case 3:
		return SlotTurn, true
	case 4:
		return SlotRiver, true
	default:
		return 0, false
	}
}

// DealingPhaseStarted is the one-time signal a hand has entered dealing.
type DealingPhaseStarted struct {
	GameID         string
	HandID         string
	ShuffleTipHash string
	Shufflers      []decryption.ShufflerID
	CardPlan       CardPlan
}

// DealRequestKind distinguishes the three shapes a per-card request can
// take.
type DealRequestKind int

const (
	RequestBlinding DealRequestKind = iota
	RequestUnblinding
	RequestCommunityBlinding
)

// DealRequest is the signal broadcast to the committee for one deal
// index once its ciphertext (and, for unblinding, its player-accessible
// form) is available in the snapshot.
type DealRequest struct {
	GameID          string
	HandID          string
	DealIndex       int
	Kind            DealRequestKind
	Seat            int
	HoleIndex       int
	BoardSlot       BoardCardSlot
	PlayerPublicKey ecc.Point
	Ciphertext      elgamal.Ciphertext
	Accessible      *decryption.PlayerAccessibleCiphertext
}

// DealingSnapshot is the subset of a table's Dealing-phase snapshot the
// dispatcher needs to decide what to announce next.
type DealingSnapshot struct {
	GameID             string
	HandID             string
	Sequence           uint64
	StateHash          string
	Shufflers          []decryption.ShufflerID
	CardPlan           CardPlan
	Assignments        map[int]elgamal.Ciphertext                    // deal_index -> ciphertext
	PlayerCiphertexts  map[int]decryption.PlayerAccessibleCiphertext // deal_index -> accessible ciphertext, present once blinded
	SeatPublicKeys     map[int]ecc.Point
	RevealedBoardSlots map[BoardCardSlot]bool // community slots whose card has completed the reveal protocol
}

// DeriveBoardReleaseStage computes the highest board_index releasable so
// far from facts already present in the snapshot, per the staging rule:
// the flop (indices 0..2) is releasable once every seated player's hole
// card has its accessible (blinded) ciphertext; the turn (3) additionally
// requires the flop slots to have completed reveal; the river (4)
// additionally requires the turn slot to have completed reveal. Returns
// -1 if even the flop is not yet releasable.
func DeriveBoardReleaseStage(cardPlan CardPlan, playerCiphertexts map[int]decryption.PlayerAccessibleCiphertext, revealed map[BoardCardSlot]bool) int {
	for dealIndex, dest := range cardPlan {
		if dest.Kind != DestinationHole {
			continue
		}
		if _, ok := playerCiphertexts[dealIndex]; !ok {
			return -1
		}
	}

	stage := 2 // flop releasable
	if !revealed[SlotFlop0] || !revealed[SlotFlop1] || !revealed[SlotFlop2] {
		return stage
	}
	stage = 3 // turn releasable
	if !revealed[SlotTurn] {
		return stage
	}
	return 4 // river releasable
}

// Router is the transport abstraction the dispatcher fans signals
// through; production code backs it with the committee's real message
// bus, tests back it with an in-memory recorder.
type Router interface {
	BroadcastDealingStarted(ctx context.Context, shufflers []decryption.ShufflerID, signal DealingPhaseStarted) error
	BroadcastDealRequest(ctx context.Context, shufflers []decryption.ShufflerID, request DealRequest) error
}

type handKey struct {
	gameID string
	handID string
}

type handState struct {
	shufflers             []decryption.ShufflerID
	cardPlan              CardPlan
	announced             map[int]map[DealRequestKind]bool
	dealingStartedEmitted bool
	lastSnapshotSeq       uint64
}

// Dispatcher observes a hand's Dealing-phase snapshots and emits the
// shuffler signals each one newly enables, exactly once per
// (game, hand, deal_index, phase).
type Dispatcher struct {
	mu     sync.Mutex
	router Router
	hands  map[handKey]*handState
}

// NewDispatcher returns a dispatcher that fans signals through router.
func NewDispatcher(router Router) *Dispatcher {
	return &Dispatcher{router: router, hands: map[handKey]*handState{}}
}

// ObserveDealing processes one Dealing-phase snapshot, dispatching any
// newly-enabled signals. Safe to call repeatedly with the same or a
// newer snapshot; dispatch errors propagate unchanged and leave
// not-yet-dispatched indices un-announced for retry at the next call.
func (d *Dispatcher) ObserveDealing(ctx context.Context, snap DealingSnapshot) error {
	d.mu.Lock()
	key := handKey{snap.GameID, snap.HandID}
	state, ok := d.hands[key]
	if !ok {
		state = &handState{
			shufflers: snap.Shufflers,
			cardPlan:  snap.CardPlan,
			announced: map[int]map[DealRequestKind]bool{},
		}
		d.hands[key] = state
	}
	state.shufflers = snap.Shufflers
	state.cardPlan = snap.CardPlan

	shouldEmitPhaseStart := !state.dealingStartedEmitted
	var phaseSignal DealingPhaseStarted
	if shouldEmitPhaseStart {
		phaseSignal = DealingPhaseStarted{
			GameID:         snap.GameID,
			HandID:         snap.HandID,
			ShuffleTipHash: snap.StateHash,
			Shufflers:      state.shufflers,
			CardPlan:       state.cardPlan,
		}
	}

	requests, newlyAnnounced := collectNewRequests(snap, state)
	shufflers := state.shufflers
	d.mu.Unlock()

	if shouldEmitPhaseStart {
		if err := d.router.BroadcastDealingStarted(ctx, shufflers, phaseSignal); err != nil {
			return fmt.Errorf("dealing: broadcast dealing-started: %w", err)
		}
	}
	var dispatchErr error
	dispatched := 0
	for _, req := range requests {
		if err := d.router.BroadcastDealRequest(ctx, shufflers, req); err != nil {
			dispatchErr = fmt.Errorf("dealing: broadcast deal request (index %d): %w", req.DealIndex, err)
			break
		}
		dispatched++
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if shouldEmitPhaseStart {
		state.dealingStartedEmitted = true
	}
	for _, a := range newlyAnnounced[:dispatched] {
		if state.announced[a.index] == nil {
			state.announced[a.index] = map[DealRequestKind]bool{}
		}
		state.announced[a.index][a.kind] = true
	}
	if dispatchErr != nil {
		return dispatchErr
	}
	state.lastSnapshotSeq = snap.Sequence
	return nil
}

type announcement struct {
	index int
	kind  DealRequestKind
}

func collectNewRequests(snap DealingSnapshot, state *handState) ([]DealRequest, []announcement) {
	var requests []DealRequest
	var newlyAnnounced []announcement

	releaseStage := DeriveBoardReleaseStage(state.cardPlan, snap.PlayerCiphertexts, snap.RevealedBoardSlots)

	indices := make([]int, 0, len(state.cardPlan))
	for idx := range state.cardPlan {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, dealIndex := range indices {
		dest := state.cardPlan[dealIndex]
		switch dest.Kind {
		case DestinationHole:
			if accessible, ok := snap.PlayerCiphertexts[dealIndex]; ok {
				if state.announced[dealIndex][RequestUnblinding] {
					continue
				}
				pk := snap.SeatPublicKeys[dest.Seat]
				requests = append(requests, DealRequest{
					GameID: snap.GameID, HandID: snap.HandID, DealIndex: dealIndex,
					Kind: RequestUnblinding, Seat: dest.Seat, HoleIndex: dest.HoleIndex,
					PlayerPublicKey: pk, Accessible: &accessible,
				})
				newlyAnnounced = append(newlyAnnounced, announcement{dealIndex, RequestUnblinding})
				continue
			}
			if state.announced[dealIndex][RequestBlinding] {
				continue
			}
			ct, ok := snap.Assignments[dealIndex]
			if !ok {
				continue
			}
			pk := snap.SeatPublicKeys[dest.Seat]
			requests = append(requests, DealRequest{
				GameID: snap.GameID, HandID: snap.HandID, DealIndex: dealIndex,
				Kind: RequestBlinding, Seat: dest.Seat, HoleIndex: dest.HoleIndex,
				PlayerPublicKey: pk, Ciphertext: ct,
			})
			newlyAnnounced = append(newlyAnnounced, announcement{dealIndex, RequestBlinding})

		case DestinationBoard:
			if state.announced[dealIndex][RequestCommunityBlinding] {
				continue
			}
			if dest.BoardIndex > releaseStage {
				continue
			}
			ct, ok := snap.Assignments[dealIndex]
			if !ok {
				continue
			}
			slot, ok := boardSlotFromIndex(dest.BoardIndex)
			if !ok {
				continue
			}
			requests = append(requests, DealRequest{
				GameID: snap.GameID, HandID: snap.HandID, DealIndex: dealIndex,
				Kind: RequestCommunityBlinding, BoardSlot: slot, Ciphertext: ct,
			})
			newlyAnnounced = append(newlyAnnounced, announcement{dealIndex, RequestCommunityBlinding})

		case DestinationBurn, DestinationUnused:
			continue
		}
	}

	return requests, newlyAnnounced
}

// Teardown discards a hand's bookkeeping once it has left the dealing
// phase; safe to call even if the hand was never observed.
func (d *Dispatcher) Teardown(gameID, handID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.hands, handKey{gameID, handID})
}

// ErrNoSnapshot signals a SnapshotSource has nothing new to deliver right
// now; Producer.Run treats it as a no-op poll rather than a fatal error.
var ErrNoSnapshot = errors.New("dealing: no snapshot available")

// SnapshotSource delivers the next Dealing-phase snapshot a Producer
// should observe, blocking until one is available, ctx is cancelled, or
// (if the source has nothing queued) returning ErrNoSnapshot.
type SnapshotSource interface {
	NextDealingSnapshot(ctx context.Context) (DealingSnapshot, error)
}

// Producer watches a SnapshotSource and feeds every snapshot it yields
// into a Dispatcher, giving the hand runtime's dealing-worker slot a
// concrete implementation instead of a caller-supplied closure.
type Producer struct {
	Source     SnapshotSource
	Dispatcher *Dispatcher
}

// Run polls Source until ctx is cancelled, dispatching each snapshot it
// receives. A snapshot that fails to dispatch is surfaced immediately;
// ErrNoSnapshot polls are swallowed so a source with no backlog does not
// spin the caller's error-group down.
func (p *Producer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap, err := p.Source.NextDealingSnapshot(ctx)
		if err != nil {
			if errors.Is(err, ErrNoSnapshot) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("dealing: next snapshot: %w", err)
		}
		if err := p.Dispatcher.ObserveDealing(ctx, snap); err != nil {
			return err
		}
	}
}
