// Package decryption implements the two-phase targeted decryption
// protocol: committee blinding contributions that redirect a card's
// ciphertext to one player's key, followed by committee unblinding
// shares the player combines with their own private key to recover the
// card's plaintext index. A symmetric single-phase variant handles
// community cards, where no redirection is needed.
package decryption

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/wu-s-john/legit-poker-sub000/crypto/ecc"
	"github.com/wu-s-john/legit-poker-sub000/crypto/elgamal"
)

// ShufflerID identifies a committee member contributing a share.
type ShufflerID string

// BlindingContribution is shuffler j's phase-1 publication: A_j = delta_j*G
// and B_j = delta_j*(Y-P_u), with a Chaum-Pedersen proof the two share a
// discrete log.
type BlindingContribution struct {
	Shuffler ShufflerID
	A        ecc.Point
	B        ecc.Point
	Proof    elgamal.DLEQProof
}

// ProveBlindingContribution draws delta_j and publishes shuffler j's
// blinding contribution toward redirecting ct to playerPublicKey.
func ProveBlindingContribution(shuffler ShufflerID, aggregatedPublicKey, playerPublicKey ecc.Point) (BlindingContribution, *big.Int, error) {
	order := aggregatedPublicKey.Order()
	delta, err := rand.Int(rand.Reader, order)
	if err != nil {
		return BlindingContribution{}, nil, fmt.Errorf("decryption: sample delta: %w", err)
	}
	if delta.Sign() == 0 {
		delta = big.NewInt(1)
	}

	g := aggregatedPublicKey.New()
	g.SetGenerator()

	yMinusP := aggregatedPublicKey.New()
	negP := aggregatedPublicKey.New()
	negP.Neg(playerPublicKey)
	yMinusP.Add(aggregatedPublicKey, negP)

	a := aggregatedPublicKey.New()
	a.ScalarMult(g, delta)
	b := aggregatedPublicKey.New()
	b.ScalarMult(yMinusP, delta)

	proof, err := elgamal.BuildDLEQProof(delta, g, yMinusP, a, b)
	if err != nil {
		return BlindingContribution{}, nil, fmt.Errorf("decryption: build blinding proof: %w", err)
	}
	return BlindingContribution{Shuffler: shuffler, A: a, B: b, Proof: proof}, delta, nil
}

// VerifyBlindingContribution checks contrib's Chaum-Pedersen proof against
// the aggregated public key Y and the target player's public key.
func VerifyBlindingContribution(aggregatedPublicKey, playerPublicKey ecc.Point, contrib BlindingContribution) error {
	g := aggregatedPublicKey.New()
	g.SetGenerator()

	yMinusP := aggregatedPublicKey.New()
	negP := aggregatedPublicKey.New()
	negP.Neg(playerPublicKey)
	yMinusP.Add(aggregatedPublicKey, negP)

	if err := elgamal.VerifyDLEQProof(g, yMinusP, contrib.A, contrib.B, contrib.Proof); err != nil {
		return fmt.Errorf("decryption: blinding contribution from %s: %w", contrib.Shuffler, err)
	}
	return nil
}

// PlayerAccessibleCiphertext is the aggregated result of a card's phase-1
// blinding: a ciphertext redirected toward one player's key, still
// requiring that player's own decryption plus the committee's unblinding
// shares to recover the plaintext.
type PlayerAccessibleCiphertext struct {
	BlindedBase          ecc.Point // c1 + sum(A_j)
	BlindedMsgWithPlayer ecc.Point // c2 + sum(B_j)
	Helper               ecc.Point // sum(A_j), needed by the player to cancel their own key's contribution
	Contributions        []BlindingContribution
}

// AggregateBlindingContributions combines every committee member's
// blinding contribution against ct into a PlayerAccessibleCiphertext,
// rejecting the whole aggregation if any contribution fails verification
// (the caller is expected to have already dropped invalid contributions
// and re-requested, per the dealing dispatcher's retry policy).
func AggregateBlindingContributions(aggregatedPublicKey, playerPublicKey ecc.Point, ct elgamal.Ciphertext, contributions []BlindingContribution) (PlayerAccessibleCiphertext, error) {
	if len(contributions) == 0 {
		return PlayerAccessibleCiphertext{}, fmt.Errorf("decryption: no blinding contributions supplied")
	}
	for _, c := range contributions {
		if err := VerifyBlindingContribution(aggregatedPublicKey, playerPublicKey, c); err != nil {
			return PlayerAccessibleCiphertext{}, err
		}
	}

	helper := aggregatedPublicKey.New()
	helper.SetZero()
	sumB := aggregatedPublicKey.New()
	sumB.SetZero()
	for _, c := range contributions {
		helper.Add(helper, c.A)
		sumB.Add(sumB, c.B)
	}

	blindedBase := aggregatedPublicKey.New()
	blindedBase.Add(ct.C1, helper)
	blindedMsg := aggregatedPublicKey.New()
	blindedMsg.Add(ct.C2, sumB)

	return PlayerAccessibleCiphertext{
		BlindedBase:          blindedBase,
		BlindedMsgWithPlayer: blindedMsg,
		Helper:               helper,
		Contributions:        contributions,
	}, nil
}

// UnblindingShare is shuffler j's phase-2 publication against a
// PlayerAccessibleCiphertext: mu_j = sk_j*blinded_base, with a
// Chaum-Pedersen proof that pk_j and mu_j share a discrete log with G and
// blinded_base respectively.
type UnblindingShare struct {
	Shuffler ShufflerID
	Mu       ecc.Point
	Proof    elgamal.DLEQProof
}

// ProveUnblindingShare publishes shuffler j's unblinding share against
// pac's blinded base.
func ProveUnblindingShare(shuffler ShufflerID, privateKey *big.Int, publicKey ecc.Point, pac PlayerAccessibleCiphertext) (UnblindingShare, error) {
	g := publicKey.New()
	g.SetGenerator()

	mu := publicKey.New()
	mu.ScalarMult(pac.BlindedBase, privateKey)

	proof, err := elgamal.BuildDLEQProof(privateKey, g, pac.BlindedBase, publicKey, mu)
	if err != nil {
		return UnblindingShare{}, fmt.Errorf("decryption: build unblinding proof: %w", err)
	}
	return UnblindingShare{Shuffler: shuffler, Mu: mu, Proof: proof}, nil
}

// VerifyUnblindingShare checks share's Chaum-Pedersen proof against the
// shuffler's public key and pac's blinded base.
func VerifyUnblindingShare(publicKey ecc.Point, pac PlayerAccessibleCiphertext, share UnblindingShare) error {
	g := publicKey.New()
	g.SetGenerator()
	if err := elgamal.VerifyDLEQProof(g, pac.BlindedBase, publicKey, share.Mu, share.Proof); err != nil {
		return fmt.Errorf("decryption: unblinding share from %s: %w", share.Shuffler, err)
	}
	return nil
}

// RecoverHoleCard combines the player's own private key with the
// committee's unblinding shares to recover m*G, then searches for the
// card index m in [0, maxMessage]. Every share must have already been
// individually verified by the caller; this function assumes all N_sh
// shares are present and valid, per the dealing dispatcher's invariant
// that an aborted hand never reaches recovery.
func RecoverHoleCard(playerPrivateKey *big.Int, pac PlayerAccessibleCiphertext, shares []UnblindingShare, maxMessage uint64) (*big.Int, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("decryption: no unblinding shares supplied")
	}

	sumMu := pac.BlindedMsgWithPlayer.New()
	sumMu.SetZero()
	for _, s := range shares {
		sumMu.Add(sumMu, s.Mu)
	}

	ownTerm := pac.BlindedMsgWithPlayer.New()
	ownTerm.ScalarMult(pac.Helper, playerPrivateKey)

	negSumMu := sumMu.New()
	negSumMu.Neg(sumMu)

	mG := pac.BlindedMsgWithPlayer.New()
	mG.Add(pac.BlindedMsgWithPlayer, negSumMu)
	mG.Add(mG, ownTerm)

	g := mG.New()
	g.SetGenerator()
	return elgamal.BabyStepGiantStepECC(mG, g, maxMessage)
}

// CommunityShare is shuffler j's publication for the symmetric
// community-card decryption protocol: sk_j*c1, with a Chaum-Pedersen
// proof that pk_j and the share are consistent with G and c1.
type CommunityShare struct {
	Shuffler ShufflerID
	Share    ecc.Point
	Proof    elgamal.DLEQProof
}

// ProveCommunityShare publishes shuffler j's decryption share for a
// community-card ciphertext; no blinding round is needed since every
// seated player is entitled to the plaintext.
func ProveCommunityShare(shuffler ShufflerID, privateKey *big.Int, publicKey ecc.Point, ct elgamal.Ciphertext) (CommunityShare, error) {
	g := publicKey.New()
	g.SetGenerator()

	share := publicKey.New()
	share.ScalarMult(ct.C1, privateKey)

	proof, err := elgamal.BuildDLEQProof(privateKey, g, ct.C1, publicKey, share)
	if err != nil {
		return CommunityShare{}, fmt.Errorf("decryption: build community share proof: %w", err)
	}
	return CommunityShare{Shuffler: shuffler, Share: share, Proof: proof}, nil
}

// VerifyCommunityShare checks share's Chaum-Pedersen proof against the
// shuffler's public key and ct's first ciphertext component.
func VerifyCommunityShare(publicKey ecc.Point, ct elgamal.Ciphertext, share CommunityShare) error {
	g := publicKey.New()
	g.SetGenerator()
	if err := elgamal.VerifyDLEQProof(g, ct.C1, publicKey, share.Share, share.Proof); err != nil {
		return fmt.Errorf("decryption: community share from %s: %w", share.Shuffler, err)
	}
	return nil
}

// RecoverCommunityCard sums the committee's community shares to remove
// ct's encryption blind, then searches for the card index in
// [0, maxMessage].
func RecoverCommunityCard(ct elgamal.Ciphertext, shares []CommunityShare, maxMessage uint64) (*big.Int, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("decryption: no community shares supplied")
	}

	sum := ct.C2.New()
	sum.SetZero()
	for _, s := range shares {
		sum.Add(sum, s.Share)
	}
	negSum := sum.New()
	negSum.Neg(sum)

	mG := ct.C2.New()
	mG.Add(ct.C2, negSum)

	g := mG.New()
	g.SetGenerator()
	return elgamal.BabyStepGiantStepECC(mG, g, maxMessage)
}
