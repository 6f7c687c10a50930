package decryption

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc/bn254"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
)

func genCurve() ecc.Point {
	p := (&bn254.G1{}).New()
	p.SetGenerator()
	return p
}

func TestTargetedDecryptionRoundTrip(t *testing.T) {
	g := genCurve()

	const nSh = 3
	committeePub := make([]ecc.Point, nSh)
	committeePriv := make([]*big.Int, nSh)
	for i := 0; i < nSh; i++ {
		pub, priv, err := elgamal.GenerateKey(g)
		if err != nil {
			t.Fatalf("GenerateKey[%d]: %v", i, err)
		}
		committeePub[i] = pub
		committeePriv[i] = priv
	}
	aggregatedPublicKey := elgamal.AggregatePublicKeys(g, committeePub)

	playerPub, playerPriv, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey(player): %v", err)
	}

	cardIndex := big.NewInt(17)
	ct, _, err := elgamal.Encrypt(aggregatedPublicKey, cardIndex)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	contributions := make([]BlindingContribution, nSh)
	for i := 0; i < nSh; i++ {
		contrib, _, err := ProveBlindingContribution(ShufflerID("s"), aggregatedPublicKey, playerPub)
		if err != nil {
			t.Fatalf("ProveBlindingContribution[%d]: %v", i, err)
		}
		contributions[i] = contrib
	}

	pac, err := AggregateBlindingContributions(aggregatedPublicKey, playerPub, ct, contributions)
	if err != nil {
		t.Fatalf("AggregateBlindingContributions: %v", err)
	}

	shares := make([]UnblindingShare, nSh)
	for i := 0; i < nSh; i++ {
		share, err := ProveUnblindingShare(ShufflerID("s"), committeePriv[i], committeePub[i], pac)
		if err != nil {
			t.Fatalf("ProveUnblindingShare[%d]: %v", i, err)
		}
		if err := VerifyUnblindingShare(committeePub[i], pac, share); err != nil {
			t.Fatalf("VerifyUnblindingShare[%d]: %v", i, err)
		}
		shares[i] = share
	}

	recovered, err := RecoverHoleCard(playerPriv, pac, shares, 51)
	if err != nil {
		t.Fatalf("RecoverHoleCard: %v", err)
	}
	if recovered.Cmp(cardIndex) != 0 {
		t.Fatalf("recovered card index = %s, want %s", recovered, cardIndex)
	}
}

func TestBlindingContributionRejectsTamperedProof(t *testing.T) {
	g := genCurve()
	aggregatedPublicKey, _, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	playerPub, _, err := elgamal.GenerateKey(g)
	if err != nil {
		t.Fatalf("GenerateKey(player): %v", err)
	}

	contrib, _, err := ProveBlindingContribution(ShufflerID("s"), aggregatedPublicKey, playerPub)
	if err != nil {
		t.Fatalf("ProveBlindingContribution: %v", err)
	}
	contrib.Proof.Z = new(big.Int).Add(contrib.Proof.Z, big.NewInt(1))

	if err := VerifyBlindingContribution(aggregatedPublicKey, playerPub, contrib); err == nil {
		t.Fatalf("expected tampered blinding proof to be rejected")
	}
}

func TestCommunityDecryptionRoundTrip(t *testing.T) {
	g := genCurve()

	const nSh = 2
	committeePub := make([]ecc.Point, nSh)
	committeePriv := make([]*big.Int, nSh)
	for i := 0; i < nSh; i++ {
		pub, priv, err := elgamal.GenerateKey(g)
		if err != nil {
			t.Fatalf("GenerateKey[%d]: %v", i, err)
		}
		committeePub[i] = pub
		committeePriv[i] = priv
	}
	aggregatedPublicKey := elgamal.AggregatePublicKeys(g, committeePub)

	cardIndex := big.NewInt(5)
	ct, _, err := elgamal.Encrypt(aggregatedPublicKey, cardIndex)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	shares := make([]CommunityShare, nSh)
	for i := 0; i < nSh; i++ {
		share, err := ProveCommunityShare(ShufflerID("s"), committeePriv[i], committeePub[i], ct)
		if err != nil {
			t.Fatalf("ProveCommunityShare[%d]: %v", i, err)
		}
		if err := VerifyCommunityShare(committeePub[i], ct, share); err != nil {
			t.Fatalf("VerifyCommunityShare[%d]: %v", i, err)
		}
		shares[i] = share
	}

	recovered, err := RecoverCommunityCard(ct, shares, 51)
	if err != nil {
		t.Fatalf("RecoverCommunityCard: %v", err)
	}
	if recovered.Cmp(cardIndex) != 0 {
		t.Fatalf("recovered card index = %s, want %s", recovered, cardIndex)
	}
}

func TestRequesterDeduplicatesConcurrentGathers(t *testing.T) {
	r := NewRequester()
	key := RequestKey{GameID: "g", HandID: "h", DealIndex: 3, Phase: PhaseUnblinding}

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		<-release
		return n, nil
	}

	type result struct {
		v   any
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			v, err := r.Gather(context.Background(), key, fetch)
			results <- result{v, err}
		}()
	}
	// Hold the first fetch open until the second Gather has had time to
	// join it.
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	res1, res2 := <-results, <-results
	if res1.err != nil {
		t.Fatalf("Gather 1: %v", res1.err)
	}
	if res2.err != nil {
		t.Fatalf("Gather 2: %v", res2.err)
	}
	v1, v2 := res1.v, res2.v
	if v1 != v2 {
		t.Fatalf("expected concurrent Gathers for same key to share one in-flight call, got %v and %v", v1, v2)
	}

	r.Forget(key)
	v3, err := r.Gather(context.Background(), key, fetch)
	if err != nil {
		t.Fatalf("Gather 3: %v", err)
	}
	if v3 == v1 {
		t.Fatalf("expected Forget to allow a fresh gather round")
	}
}

func TestGatherRespectsCancelledContext(t *testing.T) {
	r := NewRequester()
	key := RequestKey{GameID: "g", HandID: "h", DealIndex: 0, Phase: PhaseBlinding}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Gather(ctx, key, func(context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
