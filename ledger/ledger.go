// Package ledger declares the capability interfaces this engine
// consumes but does not implement: appending to the hand's audit
// transcript, and subscribing to its snapshot stream. Both are assumed
// external collaborators (an append-only store, a pub/sub transport);
// this package only fixes the Go-idiomatic shape of those boundaries
// plus an in-memory reference implementation used by tests.
package ledger

import (
	"context"
	"sync"

	"github.com/wu-s-john/legit-poker-sub000/snapshot"
)

// ActorType distinguishes who appended a transcript entry.
type ActorType int

const (
	ActorPlayer ActorType = iota
	ActorShuffler
	ActorSystem
)

func (a ActorType) String() string {
	switch a {
	case ActorPlayer:
		return "player"
	case ActorShuffler:
		return "shuffler"
	case ActorSystem:
		return "system"
	default:
		return "unknown"
	}
}

// AppendParams is one transcript entry. CorrelationID links related
// entries (e.g. a deal request and its fulfilling share) without
// constraining how the store indexes them. IdempotencyKey, combined
// with RoomID and Kind, identifies a logically repeatable append: the
// same triple observed twice is a no-op, not a duplicate entry.
type AppendParams struct {
	RoomID         string
	ActorType      ActorType
	ActorID        string
	Kind           string
	Payload        any
	CorrelationID  string
	IdempotencyKey string
}

// Appender is the transcript-append boundary. Implementations must
// make (RoomID, Kind, IdempotencyKey) appends idempotent when
// IdempotencyKey is non-empty.
type Appender interface {
	AppendToTranscript(ctx context.Context, params AppendParams) error
}

// SnapshotStream delivers a hand's TableSnapshot values in sequence
// order. Subscribers must tolerate lag: a slow consumer can miss
// snapshots, and the caller is expected to refetch from the ledger
// rather than assume it saw every snapshot.
type SnapshotStream interface {
	Subscribe(ctx context.Context, gameID, handID string) (<-chan *snapshot.TableSnapshot, error)
}

type appendKey struct {
	roomID string
	kind   string
	idemp  string
}

// MemoryAppender is an in-memory Appender for tests: it records every
// accepted append and treats a repeated (RoomID, Kind, IdempotencyKey)
// as a no-op, matching spec.md §6's idempotency rule. Appends with an
// empty IdempotencyKey are never deduplicated.
type MemoryAppender struct {
	mu      sync.Mutex
	seen    map[appendKey]struct{}
	entries []AppendParams
}

// NewMemoryAppender returns an empty in-memory appender.
func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{seen: map[appendKey]struct{}{}}
}

func (m *MemoryAppender) AppendToTranscript(_ context.Context, params AppendParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.IdempotencyKey != "" {
		key := appendKey{roomID: params.RoomID, kind: params.Kind, idemp: params.IdempotencyKey}
		if _, dup := m.seen[key]; dup {
			return nil
		}
		m.seen[key] = struct{}{}
	}
	m.entries = append(m.entries, params)
	return nil
}

// Entries returns every accepted append, in append order (duplicates
// already folded away).
func (m *MemoryAppender) Entries() []AppendParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AppendParams, len(m.entries))
	copy(out, m.entries)
	return out
}

// MemoryStream is an in-memory SnapshotStream for tests: Publish fans
// a snapshot out to every channel currently subscribed for its
// (game_id, hand_id), dropping it for any subscriber whose buffer is
// full rather than blocking the publisher — the same lag-tolerant
// contract SnapshotStream documents.
type MemoryStream struct {
	mu          sync.Mutex
	subscribers map[string][]chan *snapshot.TableSnapshot
}

// NewMemoryStream returns an empty in-memory stream.
func NewMemoryStream() *MemoryStream {
	return &MemoryStream{subscribers: map[string][]chan *snapshot.TableSnapshot{}}
}

func streamKey(gameID, handID string) string { return gameID + "/" + handID }

func (s *MemoryStream) Subscribe(ctx context.Context, gameID, handID string) (<-chan *snapshot.TableSnapshot, error) {
	ch := make(chan *snapshot.TableSnapshot, 16)
	key := streamKey(gameID, handID)

	s.mu.Lock()
	s.subscribers[key] = append(s.subscribers[key], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[key]
		for i, candidate := range subs {
			if candidate == ch {
				s.subscribers[key] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

// Publish delivers snap to every live subscriber of its (GameID,
// HandID). A subscriber that cannot keep up misses it instead of
// stalling the publisher.
func (s *MemoryStream) Publish(snap *snapshot.TableSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers[streamKey(snap.GameID, snap.HandID)] {
		select {
		case ch <- snap:
		default:
		}
	}
}
