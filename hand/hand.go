// Package hand implements the per-(game_id, hand_id) runtime: a
// cancellation-scoped coordinator owning the hand's shuffling and
// dealing sub-state and up to three scoped worker tasks (shuffle
// worker, dealing producer, dealing consumer). A Registry holds
// runtimes strongly; each Runtime holds only a weak handle back to its
// registry, so cancelling or dropping a hand never creates a
// reference cycle between the two.
package hand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"weak"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wu-s-john/legit-poker-sub000/dealing"
	"github.com/wu-s-john/legit-poker-sub000/decryption"
	"github.com/wu-s-john/legit-poker-sub000/log"
	"github.com/wu-s-john/legit-poker-sub000/shuffle"
)

// Key identifies one hand's runtime within a Registry.
type Key struct {
	GameID string
	HandID string
}

// NewHandID mints a fresh hand identifier. A table's GameID is assigned
// once when the table is created and reused across every hand played
// at it; only HandID is generated per hand, so only it needs a
// generator here.
func NewHandID() string { return uuid.NewString() }

// ShufflingState is the per-hand shuffling sub-state the runtime owns
// exclusively: the shuffle chain sequencing committee submissions and
// the roster order it expects them in. shuffle.Chain already guards
// its own internals; the mutex here protects ExpectedOrder, which is
// fixed once but read from multiple goroutines.
type ShufflingState struct {
	mu            sync.Mutex
	Chain         *shuffle.Chain
	ExpectedOrder []shuffle.ShufflerID
}

func (s *ShufflingState) Roster() []shuffle.ShufflerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shuffle.ShufflerID, len(s.ExpectedOrder))
	copy(out, s.ExpectedOrder)
	return out
}

// DealingState is the per-hand dealing sub-state: the dispatcher
// instance tracking which (deal_index, phase) requests have already
// been announced for this hand.
type DealingState struct {
	Dispatcher *dealing.Dispatcher
}

// ErrRuntimeRemoved is returned by the Run*Worker methods when a
// worker is spawned (or replaced) after the runtime has already been
// removed from its registry; the hand has ended and must not acquire
// new work.
var ErrRuntimeRemoved = errors.New("hand: cannot start or replace a worker on a runtime removed from the registry")

// Runtime owns one hand's cancellation-scoped mutable state. It is
// created by a Registry, which holds it strongly; Runtime holds only a
// weak.Pointer back to that Registry so cancelling a hand can always
// deregister it without the two keeping each other alive.
type Runtime struct {
	Key       Key
	Shuffling *ShufflingState
	Dealing   *DealingState

	ctx    context.Context
	cancel context.CancelFunc

	tasksMu  sync.Mutex
	removed  bool
	shuffle  context.CancelFunc
	producer context.CancelFunc
	consumer context.CancelFunc

	registry weak.Pointer[Registry]
}

func newRuntime(parent context.Context, key Key, registry *Registry) *Runtime {
	ctx, cancel := context.WithCancel(parent)
	return &Runtime{
		Key:       key,
		Shuffling: &ShufflingState{},
		Dealing:   &DealingState{},
		ctx:       ctx,
		cancel:    cancel,
		registry:  weak.Make(registry),
	}
}

// Context is cancelled when the hand ends (CancelAll, or Release via
// the owning Subscription).
func (r *Runtime) Context() context.Context { return r.ctx }

// RunShuffleWorker spawns fn as the hand's sole shuffle worker, under
// a context cancelled when the hand ends or this worker is replaced.
// Replacing a previously installed shuffle worker aborts it first.
func (r *Runtime) RunShuffleWorker(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(r.ctx)
	if err := r.installTask(&r.shuffle, cancel); err != nil {
		cancel()
		return err
	}
	go func() {
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw(err, fmt.Sprintf("hand: shuffle worker exited (game_id=%s hand_id=%s)", r.Key.GameID, r.Key.HandID))
		}
	}()
	return nil
}

// RunDealingWorkers spawns producer (watches snapshots, emits deal
// work items) and consumer (performs the crypto, publishes results)
// as a pair under a shared errgroup: either one failing cancels the
// other's context, same as any cooperating worker pair sharing a
// cancellation scope. Replacing either previously installed worker
// aborts the pair first.
func (r *Runtime) RunDealingWorkers(producer, consumer func(ctx context.Context) error) error {
	groupCtx, groupCancel := context.WithCancel(r.ctx)
	eg, egCtx := errgroup.WithContext(groupCtx)

	producerCtx, producerCancel := context.WithCancel(egCtx)
	consumerCtx, consumerCancel := context.WithCancel(egCtx)
	abortPair := func() { producerCancel(); consumerCancel(); groupCancel() }

	if err := r.installTask(&r.producer, abortPair); err != nil {
		abortPair()
		return err
	}
	if err := r.installTask(&r.consumer, abortPair); err != nil {
		abortPair()
		return err
	}

	eg.Go(func() error { return producer(producerCtx) })
	eg.Go(func() error { return consumer(consumerCtx) })

	go func() {
		if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw(err, fmt.Sprintf("hand: dealing workers exited (game_id=%s hand_id=%s)", r.Key.GameID, r.Key.HandID))
		}
		groupCancel()
	}()
	return nil
}

// installTask replaces *slot with cancel, first aborting whatever was
// previously installed there. Returns ErrRuntimeRemoved (without
// installing) once the runtime has left its registry.
func (r *Runtime) installTask(slot *context.CancelFunc, cancel context.CancelFunc) error {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	if r.removed {
		return ErrRuntimeRemoved
	}
	if *slot != nil {
		(*slot)()
	}
	*slot = cancel
	return nil
}

// CancelAll aborts the hand's context and every installed worker task.
// Idempotent.
func (r *Runtime) CancelAll() {
	r.cancel()
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	for _, slot := range []*context.CancelFunc{&r.shuffle, &r.producer, &r.consumer} {
		if *slot != nil {
			(*slot)()
			*slot = nil
		}
	}
}

// removeFromRegistry marks the runtime removed (blocking any further
// worker spawn/replace) and, if the registry is still reachable,
// deletes its entry.
func (r *Runtime) removeFromRegistry() {
	r.tasksMu.Lock()
	r.removed = true
	r.tasksMu.Unlock()
	if reg := r.registry.Value(); reg != nil {
		reg.remove(r.Key)
	}
}

// ErrHandAlreadyActive is returned by Registry.Start when a runtime is
// already registered for the given key.
var ErrHandAlreadyActive = errors.New("hand: a runtime is already registered for this game_id/hand_id")

// Registry holds the set of live per-hand runtimes, keyed by
// (game_id, hand_id). It is the strong-owning side of the weak/strong
// split: the registry holds runtimes strongly, runtimes hold only a
// weak handle back to it.
type Registry struct {
	mu       sync.Mutex
	runtimes map[Key]*Runtime
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: map[Key]*Runtime{}}
}

// Start creates and registers a new runtime for key, deriving its
// cancellation context from ctx and seeding its shuffling roster from
// the hand's decryption committee. Fails if a runtime is already
// registered for key — a hand's runtime is created exactly once.
func (reg *Registry) Start(ctx context.Context, key Key, committee []decryption.ShufflerID) (*Subscription, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.runtimes[key]; exists {
		return nil, ErrHandAlreadyActive
	}
	rt := newRuntime(ctx, key, reg)
	rt.Shuffling.ExpectedOrder = committeeToShufflerIDs(committee)
	reg.runtimes[key] = rt
	return &Subscription{runtime: rt}, nil
}

// Lookup returns the live runtime for key, if any.
func (reg *Registry) Lookup(key Key) (*Runtime, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rt, ok := reg.runtimes[key]
	return rt, ok
}

// Len reports the number of live runtimes.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.runtimes)
}

func (reg *Registry) remove(key Key) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.runtimes, key)
}

// Subscription is the strong handle callers hold to a hand's runtime.
// Release cancels every in-flight worker, then deregisters the
// runtime — callers should `defer sub.Release()`.
type Subscription struct {
	once    sync.Once
	runtime *Runtime
}

// Runtime returns the subscribed hand's runtime.
func (s *Subscription) Runtime() *Runtime { return s.runtime }

// Release cancels the hand's workers and removes the runtime from its
// registry, in that order. Safe to call more than once; only the
// first call has effect.
func (s *Subscription) Release() {
	s.once.Do(func() {
		s.runtime.CancelAll()
		s.runtime.removeFromRegistry()
	})
}

// committeeToShufflerIDs adapts a decryption-committee roster to the
// shuffle package's own ShufflerID type; the two packages each define
// their own identical-in-spirit identifier to avoid an import cycle
// between shuffle (pure crypto orchestration) and decryption.
func committeeToShufflerIDs(ids []decryption.ShufflerID) []shuffle.ShufflerID {
	out := make([]shuffle.ShufflerID, len(ids))
	for i, id := range ids {
		out[i] = shuffle.ShufflerID(id)
	}
	return out
}
