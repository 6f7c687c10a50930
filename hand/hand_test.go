package hand

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wu-s-john/legit-poker-sub000/decryption"
)

func waitForCancel(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected context to be cancelled")
	}
}

func TestNewHandIDProducesDistinctValues(t *testing.T) {
	a, b := NewHandID(), NewHandID()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

func TestStartSeedsShufflingRosterAndRejectsDuplicateKey(t *testing.T) {
	reg := NewRegistry()
	key := Key{GameID: "g1", HandID: NewHandID()}
	committee := []decryption.ShufflerID{"s0", "s1", "s2"}

	sub, err := reg.Start(context.Background(), key, committee)
	require.NoError(t, err)
	defer sub.Release()

	roster := sub.Runtime().Shuffling.Roster()
	require.Equal(t, []decryption.ShufflerID{"s0", "s1", "s2"}, committee)
	require.Len(t, roster, 3)
	require.Equal(t, "s0", string(roster[0]))
	require.Equal(t, "s2", string(roster[2]))

	_, err = reg.Start(context.Background(), key, committee)
	require.ErrorIs(t, err, ErrHandAlreadyActive)
}

func TestLookupFindsRegisteredRuntimeAndReleaseRemovesIt(t *testing.T) {
	reg := NewRegistry()
	key := Key{GameID: "g1", HandID: NewHandID()}

	sub, err := reg.Start(context.Background(), key, nil)
	require.NoError(t, err)

	_, ok := reg.Lookup(key)
	require.True(t, ok, "expected runtime to be registered")
	require.Equal(t, 1, reg.Len())

	sub.Release()

	_, ok = reg.Lookup(key)
	require.False(t, ok, "expected runtime to be removed after Release")
	require.Equal(t, 0, reg.Len())
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	sub, err := reg.Start(context.Background(), Key{GameID: "g", HandID: NewHandID()}, nil)
	require.NoError(t, err)
	sub.Release()
	sub.Release()
	require.Equal(t, 0, reg.Len())
}

func TestRunShuffleWorkerCancelsPreviousWorkerOnReplace(t *testing.T) {
	reg := NewRegistry()
	sub, err := reg.Start(context.Background(), Key{GameID: "g", HandID: NewHandID()}, nil)
	require.NoError(t, err)
	defer sub.Release()
	rt := sub.Runtime()

	var firstCtx context.Context
	started := make(chan struct{})
	err = rt.RunShuffleWorker(func(ctx context.Context) error {
		firstCtx = ctx
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	err = rt.RunShuffleWorker(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	waitForCancel(t, firstCtx)
}

func TestRunShuffleWorkerFailsAfterRelease(t *testing.T) {
	reg := NewRegistry()
	sub, err := reg.Start(context.Background(), Key{GameID: "g", HandID: NewHandID()}, nil)
	require.NoError(t, err)
	rt := sub.Runtime()
	sub.Release()

	err = rt.RunShuffleWorker(func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, ErrRuntimeRemoved)
}

func TestCancelAllStopsShuffleAndDealingWorkers(t *testing.T) {
	reg := NewRegistry()
	sub, err := reg.Start(context.Background(), Key{GameID: "g", HandID: NewHandID()}, nil)
	require.NoError(t, err)
	rt := sub.Runtime()

	var wg sync.WaitGroup
	wg.Add(3)
	require.NoError(t, rt.RunShuffleWorker(func(ctx context.Context) error {
		defer wg.Done()
		<-ctx.Done()
		return ctx.Err()
	}))
	require.NoError(t, rt.RunDealingWorkers(
		func(ctx context.Context) error { defer wg.Done(); <-ctx.Done(); return ctx.Err() },
		func(ctx context.Context) error { defer wg.Done(); <-ctx.Done(); return ctx.Err() },
	))

	rt.CancelAll()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected all workers to observe cancellation")
	}
}

func TestDealingWorkerFailureCancelsItsSibling(t *testing.T) {
	reg := NewRegistry()
	sub, err := reg.Start(context.Background(), Key{GameID: "g", HandID: NewHandID()}, nil)
	require.NoError(t, err)
	defer sub.Release()
	rt := sub.Runtime()

	boom := errors.New("producer boom")
	var consumerCtx context.Context
	consumerStarted := make(chan struct{})

	err = rt.RunDealingWorkers(
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			consumerCtx = ctx
			close(consumerStarted)
			<-ctx.Done()
			return ctx.Err()
		},
	)
	require.NoError(t, err)

	<-consumerStarted
	waitForCancel(t, consumerCtx)
}

func TestRuntimeRemovalDoesNotPanicWhenRegistryIsGCdFirst(t *testing.T) {
	reg := NewRegistry()
	sub, err := reg.Start(context.Background(), Key{GameID: "g", HandID: NewHandID()}, nil)
	require.NoError(t, err)
	rt := sub.Runtime()
	reg = nil
	_ = reg
	runtime.GC()

	sub.Release()
	require.Error(t, rt.Context().Err())
}
