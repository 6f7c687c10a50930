package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wu-s-john/legit-poker-sub000/snapshot"
)

func TestMemoryAppenderDeduplicatesByRoomKindIdempotencyKey(t *testing.T) {
	m := NewMemoryAppender()
	ctx := context.Background()

	params := AppendParams{RoomID: "g1/h1", ActorType: ActorShuffler, ActorID: "s0", Kind: "shuffle_submitted", IdempotencyKey: "seq-1"}
	require.NoError(t, m.AppendToTranscript(ctx, params))
	require.NoError(t, m.AppendToTranscript(ctx, params))

	require.Len(t, m.Entries(), 1)
}

func TestMemoryAppenderDistinguishesByKindAndRoom(t *testing.T) {
	m := NewMemoryAppender()
	ctx := context.Background()

	base := AppendParams{RoomID: "g1/h1", Kind: "shuffle_submitted", IdempotencyKey: "seq-1"}
	differentKind := base
	differentKind.Kind = "deal_requested"
	differentRoom := base
	differentRoom.RoomID = "g1/h2"

	for _, p := range []AppendParams{base, differentKind, differentRoom} {
		require.NoError(t, m.AppendToTranscript(ctx, p))
	}

	require.Len(t, m.Entries(), 3)
}

func TestMemoryAppenderWithoutIdempotencyKeyNeverDeduplicates(t *testing.T) {
	m := NewMemoryAppender()
	ctx := context.Background()
	params := AppendParams{RoomID: "g1/h1", Kind: "log_line"}

	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendToTranscript(ctx, params))
	}

	require.Len(t, m.Entries(), 3)
}

func TestMemoryStreamDeliversPublishedSnapshotsToSubscriber(t *testing.T) {
	s := NewMemoryStream()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, "g1", "h1")
	require.NoError(t, err)

	snap := &snapshot.TableSnapshot{GameID: "g1", HandID: "h1", Sequence: 1, Phase: snapshot.PhaseShuffling}
	s.Publish(snap)

	select {
	case got := <-ch:
		require.Equal(t, uint64(1), got.Sequence)
	case <-time.After(time.Second):
		t.Fatalf("expected subscriber to receive published snapshot")
	}
}

func TestMemoryStreamDoesNotCrossDeliverBetweenHands(t *testing.T) {
	s := NewMemoryStream()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, "g1", "h1")
	require.NoError(t, err)

	s.Publish(&snapshot.TableSnapshot{GameID: "g1", HandID: "h2", Sequence: 1, Phase: snapshot.PhaseShuffling})

	select {
	case got := <-ch:
		t.Fatalf("did not expect a snapshot for a different hand, got %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStreamDropsRatherThanBlocksWhenSubscriberBufferIsFull(t *testing.T) {
	s := NewMemoryStream()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Subscribe(ctx, "g1", "h1")
	require.NoError(t, err)

	for i := uint64(0); i < 64; i++ {
		s.Publish(&snapshot.TableSnapshot{GameID: "g1", HandID: "h1", Sequence: i, Phase: snapshot.PhaseShuffling})
	}
}

func TestMemoryStreamClosesChannelWhenContextCancelled(t *testing.T) {
	s := NewMemoryStream()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Subscribe(ctx, "g1", "h1")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "expected channel to be closed after context cancellation")
	case <-time.After(time.Second):
		t.Fatalf("expected channel to close promptly after cancellation")
	}
}
