package dealing

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc/bn254"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
	"github.com/wu-s-john/legit-poker-sub000/decryption"
)

func dealCurve() ecc.Point {
	p := (&bn254.G1{}).New()
	p.SetGenerator()
	return p
}

type recordingRouter struct {
	mu              sync.Mutex
	dealingStarted  []DealingPhaseStarted
	dealRequests    []DealRequest
	failNextRequest bool
}

func (r *recordingRouter) BroadcastDealingStarted(ctx context.Context, shufflers []decryption.ShufflerID, signal DealingPhaseStarted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dealingStarted = append(r.dealingStarted, signal)
	return nil
}

func (r *recordingRouter) BroadcastDealRequest(ctx context.Context, shufflers []decryption.ShufflerID, request DealRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextRequest {
		r.failNextRequest = false
		return errors.New("synthetic router failure")
	}
	r.dealRequests = append(r.dealRequests, request)
	return nil
}

func baseSnapshot() DealingSnapshot {
	g := dealCurve()
	ct, _, _ := elgamal.Encrypt(g, big.NewInt(3))
	return DealingSnapshot{
		GameID:    "g1",
		HandID:    "h1",
		Sequence:  1,
		StateHash: "hash1",
		Shufflers: []decryption.ShufflerID{"a", "b"},
		CardPlan: CardPlan{
			1: {Kind: DestinationHole, Seat: 0, HoleIndex: 0},
		},
		Assignments: map[int]elgamal.Ciphertext{
			1: ct,
		},
		PlayerCiphertexts: map[int]decryption.PlayerAccessibleCiphertext{},
		SeatPublicKeys:    map[int]ecc.Point{0: g},
	}
}

func TestDispatcherEmitsPhaseStartedOnce(t *testing.T) {
	router := &recordingRouter{}
	d := NewDispatcher(router)
	snap := baseSnapshot()

	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("first observe: %v", err)
	}
	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("second observe: %v", err)
	}
	if len(router.dealingStarted) != 1 {
		t.Fatalf("expected dealing-started emitted once, got %d", len(router.dealingStarted))
	}
}

func TestDispatcherSuppressesDuplicateRequests(t *testing.T) {
	router := &recordingRouter{}
	d := NewDispatcher(router)
	snap := baseSnapshot()

	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("first observe: %v", err)
	}
	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("second observe: %v", err)
	}
	if len(router.dealRequests) != 1 {
		t.Fatalf("expected one deal request across repeated observations, got %d", len(router.dealRequests))
	}
}

func TestDispatcherTransitionsBlindingToUnblinding(t *testing.T) {
	router := &recordingRouter{}
	d := NewDispatcher(router)
	snap := baseSnapshot()

	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("observe (blinding): %v", err)
	}
	if router.dealRequests[0].Kind != RequestBlinding {
		t.Fatalf("expected first request to be a blinding request")
	}

	g := dealCurve()
	accessible := decryption.PlayerAccessibleCiphertext{BlindedBase: g, BlindedMsgWithPlayer: g, Helper: g}
	snap.PlayerCiphertexts[1] = accessible
	snap.Sequence = 2

	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("observe (unblinding): %v", err)
	}
	if len(router.dealRequests) != 2 {
		t.Fatalf("expected a second, unblinding request once the accessible ciphertext appears, got %d", len(router.dealRequests))
	}
	if router.dealRequests[1].Kind != RequestUnblinding {
		t.Fatalf("expected second request to be an unblinding request")
	}
}

func TestDispatcherRetriesAfterRouterError(t *testing.T) {
	router := &recordingRouter{failNextRequest: true}
	d := NewDispatcher(router)
	snap := baseSnapshot()

	if err := d.ObserveDealing(context.Background(), snap); err == nil {
		t.Fatalf("expected synthetic router failure to propagate")
	}
	if len(router.dealRequests) != 0 {
		t.Fatalf("failed dispatch should not record a request")
	}

	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("retry observe: %v", err)
	}
	if len(router.dealRequests) != 1 {
		t.Fatalf("expected retry to succeed and record one request, got %d", len(router.dealRequests))
	}
}

func TestDispatcherRespectsBoardReleaseStage(t *testing.T) {
	router := &recordingRouter{}
	d := NewDispatcher(router)
	g := dealCurve()
	ct, _, _ := elgamal.Encrypt(g, big.NewInt(9))
	snap := DealingSnapshot{
		GameID:    "g1",
		HandID:    "h1",
		Shufflers: []decryption.ShufflerID{"a"},
		CardPlan: CardPlan{
			8: {Kind: DestinationBoard, BoardIndex: 3}, // turn card, not yet releasable
		},
		Assignments:        map[int]elgamal.Ciphertext{8: ct},
		PlayerCiphertexts:  map[int]decryption.PlayerAccessibleCiphertext{},
		SeatPublicKeys:     map[int]ecc.Point{},
		RevealedBoardSlots: map[BoardCardSlot]bool{}, // only flop released so far (stage 2)
	}

	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(router.dealRequests) != 0 {
		t.Fatalf("turn card should not be requested before flop reveal, got %d requests", len(router.dealRequests))
	}

	snap.RevealedBoardSlots = map[BoardCardSlot]bool{SlotFlop0: true, SlotFlop1: true, SlotFlop2: true}
	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("observe after stage advance: %v", err)
	}
	if len(router.dealRequests) != 1 {
		t.Fatalf("expected turn card request once releasable, got %d", len(router.dealRequests))
	}
}

func TestDeriveBoardReleaseStage(t *testing.T) {
	plan := CardPlan{
		0: {Kind: DestinationHole, Seat: 0, HoleIndex: 0},
		1: {Kind: DestinationHole, Seat: 1, HoleIndex: 0},
	}
	g := dealCurve()
	accessible := decryption.PlayerAccessibleCiphertext{BlindedBase: g, BlindedMsgWithPlayer: g, Helper: g}

	// Hole cards incomplete: nothing releasable yet.
	incomplete := map[int]decryption.PlayerAccessibleCiphertext{0: accessible}
	if stage := DeriveBoardReleaseStage(plan, incomplete, nil); stage != -1 {
		t.Fatalf("expected stage -1 with incomplete hole blindings, got %d", stage)
	}

	complete := map[int]decryption.PlayerAccessibleCiphertext{0: accessible, 1: accessible}

	if stage := DeriveBoardReleaseStage(plan, complete, nil); stage != 2 {
		t.Fatalf("expected stage 2 (flop releasable) once hole blindings complete, got %d", stage)
	}

	flopRevealed := map[BoardCardSlot]bool{SlotFlop0: true, SlotFlop1: true, SlotFlop2: true}
	if stage := DeriveBoardReleaseStage(plan, complete, flopRevealed); stage != 3 {
		t.Fatalf("expected stage 3 (turn releasable) once flop revealed, got %d", stage)
	}

	turnRevealed := map[BoardCardSlot]bool{SlotFlop0: true, SlotFlop1: true, SlotFlop2: true, SlotTurn: true}
	if stage := DeriveBoardReleaseStage(plan, complete, turnRevealed); stage != 4 {
		t.Fatalf("expected stage 4 (river releasable) once turn revealed, got %d", stage)
	}
}

// queueSnapshotSource is a SnapshotSource backed by a fixed queue of
// snapshots, draining to ErrNoSnapshot once exhausted; used to exercise
// Producer.Run against the same dispatching path ObserveDealing is
// tested against directly above.
type queueSnapshotSource struct {
	mu    sync.Mutex
	queue []DealingSnapshot
}

func (q *queueSnapshotSource) NextDealingSnapshot(ctx context.Context) (DealingSnapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return DealingSnapshot{}, ErrNoSnapshot
	}
	snap := q.queue[0]
	q.queue = q.queue[1:]
	return snap, nil
}

func TestProducerDispatchesQueuedSnapshots(t *testing.T) {
	router := &recordingRouter{}
	dispatcher := NewDispatcher(router)
	source := &queueSnapshotSource{queue: []DealingSnapshot{baseSnapshot()}}
	producer := &Producer{Source: source, Dispatcher: dispatcher}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- producer.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		router.mu.Lock()
		started := len(router.dealingStarted)
		router.mu.Unlock()
		if started == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("producer did not dispatch the queued snapshot in time")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected producer to stop with context.Canceled, got %v", err)
	}
}

func TestDispatcherTeardownClearsHandState(t *testing.T) {
	router := &recordingRouter{}
	d := NewDispatcher(router)
	snap := baseSnapshot()
	if err := d.ObserveDealing(context.Background(), snap); err != nil {
		t.Fatalf("observe: %v", err)
	}

	d.Teardown(snap.GameID, snap.HandID)

	d.mu.Lock()
	_, ok := d.hands[handKey{snap.GameID, snap.HandID}]
	d.mu.Unlock()
	if ok {
		t.Fatalf("expected hand state to be removed after teardown")
	}
}
