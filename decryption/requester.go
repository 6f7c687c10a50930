package decryption

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Phase distinguishes a blinding request from an unblinding request for
// the same deal index, since the dealing dispatcher's idempotence key is
// scoped per-phase rather than per-card.
type Phase int

const (
	PhaseBlinding Phase = iota
	PhaseUnblinding
)

func (p Phase) String() string {
	switch p {
	case PhaseBlinding:
		return "blinding"
	case PhaseUnblinding:
		return "unblinding"
	default:
		return "unknown"
	}
}

// RequestKey identifies one outstanding share-gathering request, scoped
// to a hand, a deal index, and a phase so concurrent re-requests for the
// same card collapse into one in-flight gather.
type RequestKey struct {
	GameID    string
	HandID    string
	DealIndex int
	Phase     Phase
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", k.GameID, k.HandID, k.DealIndex, k.Phase)
}

// Requester de-duplicates concurrent calls to gather a committee's
// blinding or unblinding shares for the same card, so a slow shuffler
// response and a dispatcher retry triggered by the next snapshot don't
// race to issue two independent gather rounds for the same request.
type Requester struct {
	group singleflight.Group
}

// NewRequester returns a ready-to-use share-request de-duplicator.
func NewRequester() *Requester {
	return &Requester{}
}

// Gather runs fetch at most once per outstanding RequestKey; concurrent
// callers for the same key block on the single in-flight call and share
// its result.
func (r *Requester) Gather(ctx context.Context, key RequestKey, fetch func(context.Context) (any, error)) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		return fetch(ctx)
	})
	return v, err
}

// Forget drops any cached in-flight call for key, allowing the next
// Gather to issue a fresh round (used once a dispatch attempt is known
// to have failed and must be retried rather than replayed).
func (r *Requester) Forget(key RequestKey) {
	r.group.Forget(key.String())
}
