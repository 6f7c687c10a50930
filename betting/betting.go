// Package betting implements the No-Limit Hold'em betting state machine:
// seat ordering, blind posting, action legality, short-all-in vs
// full-raise reopening, side-pot slicing, and street/hand termination.
// It is pure state transition logic; callers own persistence, timing,
// and wiring it to a hand's snapshot stream.
package betting

import (
	"errors"
	"fmt"
)

// SeatID identifies one seat at the table.
type SeatID int

// Chips is a chip amount; always non-negative in a valid state.
type Chips int64

// Street is one of the four post-deal betting rounds.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "unknown"
	}
}

// PlayerStatus is a seat's participation state within the hand.
type PlayerStatus int

const (
	Active PlayerStatus = iota
	Folded
	AllIn
)

// TableStakes are the hand's fixed blind/ante amounts.
type TableStakes struct {
	SmallBlind Chips
	BigBlind   Chips
	Ante       Chips
}

// HandConfig is the fixed configuration for one hand's betting.
type HandConfig struct {
	Stakes           TableStakes
	Button           SeatID
	SmallBlindSeat   SeatID
	BigBlindSeat     SeatID
	CheckRaiseAllowed bool
}

// PlayerState is one seat's mutable betting state.
type PlayerState struct {
	Seat               SeatID
	Stack              Chips
	CommittedThisRound Chips
	CommittedTotal     Chips
	Status             PlayerStatus
	HasActedThisRound  bool
}

// NewPlayerState returns a fresh, unacted, Active seat with the given
// starting stack.
func NewPlayerState(seat SeatID, stack Chips) PlayerState {
	return PlayerState{Seat: seat, Stack: stack, Status: Active}
}

// ActionKind distinguishes the six player actions.
type ActionKind int

const (
	ActionCheck ActionKind = iota
	ActionCall
	ActionBetTo
	ActionRaiseTo
	ActionFold
	ActionAllIn
)

// PlayerAction is one action a seat takes on their turn. To is the
// absolute target commitment for BetTo/RaiseTo and is ignored otherwise.
type PlayerAction struct {
	Kind ActionKind
	To   Chips
}

// Action-legality errors, surfaced to the caller without mutating state,
// per the engine's typed action-error taxonomy.
var (
	ErrCannotCheckFacingBet  = errors.New("betting: cannot check while facing a bet")
	ErrCannotBetWhenOpened   = errors.New("betting: cannot bet when the street is already opened, use raise")
	ErrInvalidRaise          = errors.New("betting: raise target outside the legal raise range")
	ErrInvalidBet            = errors.New("betting: bet target outside the legal bet range")
	ErrNotYourTurn           = errors.New("betting: seat is not the seat to act")
	ErrInsufficientStack     = errors.New("betting: seat has no stack remaining to act with")
	ErrSeatNotActive         = errors.New("betting: seat is not active")
	ErrUnknownSeat           = errors.New("betting: unknown seat")
	ErrStreetNotComplete     = errors.New("betting: street has not ended yet")
)

// Pot is one layer of the pot: an amount and the set of seats still
// eligible to win it. Cap is the committed-total threshold that closed
// this layer (the smallest all-in total for the main pot, the next
// all-in total up for each side pot); nil once no further seat can cap
// a layer above it (e.g. a single uncapped active seat remains).
type Pot struct {
	Amount   Chips
	Eligible []SeatID
	Cap      *Chips
}

// Pots is the main pot plus any side pots, ordered from first-formed to
// last.
type Pots struct {
	Main  Pot
	Sides []Pot
}

// Range is an inclusive [Start, End] bound on a legal bet/raise target.
type Range struct {
	Start Chips
	End   Chips
}

// LegalActions reports which actions a seat may currently take and the
// bounds on any target-amount actions.
type LegalActions struct {
	MayCheck      bool
	MayCall       bool
	CallAmount    Chips
	MayFold       bool
	MayAllIn      bool
	BetToRange    *Range
	RaiseToRange  *Range
}

// GameEvent is a notable occurrence surfaced alongside a Transition.
type GameEvent int

const (
	EventAllPlayersAllIn GameEvent = iota
)

// Transition is the result of applying one action: the street continues
// with a new seat to act, the street ends, or the hand ends outright.
type Transition struct {
	Kind       TransitionKind
	NextToAct  SeatID
	Street     Street
	Winner     SeatID
	Events     []GameEvent
}

type TransitionKind int

const (
	Continued TransitionKind = iota
	StreetEnd
	HandEnd
)

// State is one hand's complete betting state.
type State struct {
	Config              HandConfig
	Players             []PlayerState // indexed by seat order in the slice, not by SeatID value
	Street              Street
	CurrentBet          Chips
	LastFullRaiseAmount Chips
	FirstToAct          SeatID
	ToAct               SeatID
	Pots                Pots
	BettingLockedAllIn  bool
}

// PostBlinds returns a copy of players with the small and big blind
// committed for the configured seats. A seat whose stack is smaller
// than its blind posts its entire remaining stack instead, and becomes
// AllIn with committed_this_round set to that short amount.
func PostBlinds(cfg HandConfig, players []PlayerState) []PlayerState {
	out := make([]PlayerState, len(players))
	copy(out, players)
	postBlind(out, cfg.SmallBlindSeat, cfg.Stakes.SmallBlind)
	postBlind(out, cfg.BigBlindSeat, cfg.Stakes.BigBlind)
	return out
}

func postBlind(players []PlayerState, seat SeatID, blind Chips) {
	for i := range players {
		if players[i].Seat != seat {
			continue
		}
		p := &players[i]
		amount := blind
		if p.Stack < blind {
			amount = p.Stack
			p.Status = AllIn
		}
		p.Stack -= amount
		p.CommittedThisRound = amount
		p.CommittedTotal = amount
		return
	}
}

// NewAfterDeal constructs the preflop betting state once blinds have
// been posted into players (via PostBlinds) and the deck has been
// dealt. First-to-act preflop is the seat immediately left of the big
// blind.
func NewAfterDeal(cfg HandConfig, players []PlayerState, pots Pots) *State {
	s := &State{
		Config:              cfg,
		Players:             players,
		Street:              Preflop,
		LastFullRaiseAmount: cfg.Stakes.BigBlind,
		Pots:                pots,
	}
	// The bet facing the table at hand start is whatever the blinds
	// actually committed, not the nominal big blind: a short-stacked big
	// blind (PostBlinds) commits less than cfg.Stakes.BigBlind, and that
	// lesser amount is all other seats need to call.
	for i := range s.Players {
		if s.Players[i].CommittedThisRound > s.CurrentBet {
			s.CurrentBet = s.Players[i].CommittedThisRound
		}
	}
	s.FirstToAct = s.nextActiveSeatAfter(cfg.BigBlindSeat)
	s.ToAct = s.FirstToAct
	return s
}

func (s *State) playerIndex(seat SeatID) int {
	for i := range s.Players {
		if s.Players[i].Seat == seat {
			return i
		}
	}
	return -1
}

// Player returns a pointer to seat's state, or nil if unknown.
func (s *State) Player(seat SeatID) *PlayerState {
	i := s.playerIndex(seat)
	if i < 0 {
		return nil
	}
	return &s.Players[i]
}

func (s *State) seatOrder() []SeatID {
	seats := make([]SeatID, len(s.Players))
	for i, p := range s.Players {
		seats[i] = p.Seat
	}
	return seats
}

// nextActiveSeatAfter walks clockwise from after from, skipping Folded
// and AllIn seats (AllIn seats are skipped for turn but still counted
// for termination elsewhere).
func (s *State) nextActiveSeatAfter(from SeatID) SeatID {
	order := s.seatOrder()
	n := len(order)
	startIdx := 0
	for i, seat := range order {
		if seat == from {
			startIdx = i
			break
		}
	}
	for step := 1; step <= n; step++ {
		idx := (startIdx + step) % n
		p := s.Players[idx]
		if p.Status == Active {
			return p.Seat
		}
	}
	return from
}

func (s *State) nonFoldedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Status != Folded {
			n++
		}
	}
	return n
}

func (s *State) nonFoldedNonAllInCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Status == Active {
			n++
		}
	}
	return n
}

// LegalActions reports seat's legal actions given the current state.
func (s *State) LegalActions(seat SeatID) LegalActions {
	p := s.Player(seat)
	if p == nil {
		return LegalActions{}
	}
	// Preflop starts "opened" because the blinds already count as the
	// street's first bet; a fresh postflop street starts unopened with
	// current_bet == 0.
	opened := s.CurrentBet > 0

	var out LegalActions
	out.MayCheck = p.CommittedThisRound == s.CurrentBet
	out.MayCall = s.CurrentBet > p.CommittedThisRound && p.Stack > 0
	if out.MayCall {
		out.CallAmount = minChips(s.CurrentBet-p.CommittedThisRound, p.Stack)
	}
	out.MayFold = true
	out.MayAllIn = p.Status == Active && p.Stack > 0

	maxTarget := p.Stack + p.CommittedThisRound
	if !opened {
		if maxTarget >= s.Config.Stakes.BigBlind {
			out.BetToRange = &Range{Start: s.Config.Stakes.BigBlind, End: maxTarget}
		}
	} else {
		minRaiseTo := s.CurrentBet + s.LastFullRaiseAmount
		if maxTarget >= minRaiseTo {
			out.RaiseToRange = &Range{Start: minRaiseTo, End: maxTarget}
		}
	}
	return out
}

// ApplyAction validates and applies action for seat, returning the
// resulting Transition or a typed action-legality error. The state is
// left unchanged on error.
func (s *State) ApplyAction(seat SeatID, action PlayerAction) (Transition, error) {
	p := s.Player(seat)
	if p == nil {
		return Transition{}, ErrUnknownSeat
	}
	if seat != s.ToAct {
		return Transition{}, ErrNotYourTurn
	}
	if p.Status != Active {
		return Transition{}, ErrSeatNotActive
	}

	switch action.Kind {
	case ActionFold:
		p.Status = Folded
		p.HasActedThisRound = true

	case ActionCheck:
		if p.CommittedThisRound != s.CurrentBet {
			return Transition{}, ErrCannotCheckFacingBet
		}
		p.HasActedThisRound = true

	case ActionCall:
		if s.CurrentBet <= p.CommittedThisRound || p.Stack == 0 {
			return Transition{}, ErrInsufficientStack
		}
		amount := minChips(s.CurrentBet-p.CommittedThisRound, p.Stack)
		s.commit(p, amount)
		p.HasActedThisRound = true
		if p.Stack == 0 {
			p.Status = AllIn
		}

	case ActionBetTo:
		legal := s.LegalActions(seat)
		if legal.BetToRange == nil {
			return Transition{}, ErrCannotBetWhenOpened
		}
		if action.To < legal.BetToRange.Start || action.To > legal.BetToRange.End {
			return Transition{}, ErrInvalidBet
		}
		s.openBet(p, action.To)

	case ActionRaiseTo:
		legal := s.LegalActions(seat)
		if legal.RaiseToRange == nil {
			return Transition{}, ErrInvalidRaise
		}
		if action.To < legal.RaiseToRange.Start || action.To > legal.RaiseToRange.End {
			return Transition{}, ErrInvalidRaise
		}
		s.raiseTo(p, action.To)

	case ActionAllIn:
		if p.Stack == 0 {
			return Transition{}, ErrInsufficientStack
		}
		s.goAllIn(p)

	default:
		return Transition{}, fmt.Errorf("betting: unknown action kind %d", action.Kind)
	}

	return s.afterAction(seat)
}

// commit moves amount from p's stack into committed_this_round/total.
func (s *State) commit(p *PlayerState, amount Chips) {
	p.Stack -= amount
	p.CommittedThisRound += amount
	p.CommittedTotal += amount
}

// openBet is an unopened-street bet to an absolute target: always a
// full open, since there was no prior current_bet to compare against.
func (s *State) openBet(p *PlayerState, to Chips) {
	delta := to - p.CommittedThisRound
	s.commit(p, delta)
	s.CurrentBet = to
	s.LastFullRaiseAmount = to
	p.HasActedThisRound = true
	if p.Stack == 0 {
		p.Status = AllIn
	}
	s.reopenActionExcept(p.Seat)
}

// raiseTo is an opened-street raise to an absolute target that meets or
// exceeds the minimum raise, always a full raise (anything short must go
// through goAllIn instead).
func (s *State) raiseTo(p *PlayerState, to Chips) {
	increment := to - s.CurrentBet
	delta := to - p.CommittedThisRound
	s.commit(p, delta)
	s.CurrentBet = to
	s.LastFullRaiseAmount = increment
	p.HasActedThisRound = true
	if p.Stack == 0 {
		p.Status = AllIn
	}
	s.reopenActionExcept(p.Seat)
}

// goAllIn pushes all of p's remaining stack in, applying the short-raise
// rule: a raise whose increment is below LastFullRaiseAmount updates
// current_bet but does not reopen action or update the minimum raise.
func (s *State) goAllIn(p *PlayerState) {
	delta := p.Stack
	newTotal := p.CommittedThisRound + delta
	s.commit(p, delta)
	p.Status = AllIn
	p.HasActedThisRound = true

	if newTotal <= s.CurrentBet {
		// An all-in that doesn't even match the current bet: a short
		// call, current_bet is unchanged.
		return
	}

	increment := newTotal - s.CurrentBet
	s.CurrentBet = newTotal
	if increment >= s.LastFullRaiseAmount {
		s.LastFullRaiseAmount = increment
		s.reopenActionExcept(p.Seat)
	}
	// Short raise: current_bet moved but last_full_raise_amount and
	// has_acted_this_round for other seats are left untouched.
}

// reopenActionExcept clears has_acted_this_round for every non-folded,
// non-all-in seat except the actor, so a full raise re-prompts players
// who had already matched the prior current_bet.
func (s *State) reopenActionExcept(actor SeatID) {
	for i := range s.Players {
		if s.Players[i].Seat == actor {
			continue
		}
		if s.Players[i].Status == Active {
			s.Players[i].HasActedThisRound = false
		}
	}
}

func minChips(a, b Chips) Chips {
	if a < b {
		return a
	}
	return b
}

// afterAction determines the Transition following an applied action:
// hand end if one seat remains, street end if the round is settled (with
// an AllPlayersAllIn event if every remaining seat is AllIn), or
// continuation to the next seat to act.
func (s *State) afterAction(acted SeatID) (Transition, error) {
	if s.nonFoldedCount() == 1 {
		var winner SeatID
		for _, p := range s.Players {
			if p.Status != Folded {
				winner = p.Seat
				break
			}
		}
		return Transition{Kind: HandEnd, Winner: winner}, nil
	}

	if s.streetSettled() {
		var events []GameEvent
		if s.nonFoldedNonAllInCount() == 0 {
			s.BettingLockedAllIn = true
			events = append(events, EventAllPlayersAllIn)
		}
		return Transition{Kind: StreetEnd, Street: s.Street, Events: events}, nil
	}

	next := s.nextActiveSeatAfter(acted)
	s.ToAct = next
	return Transition{Kind: Continued, NextToAct: next}, nil
}

// streetSettled reports whether every non-folded, non-all-in seat has
// matched current_bet and acted this round.
func (s *State) streetSettled() bool {
	for _, p := range s.Players {
		if p.Status != Active {
			continue
		}
		if p.CommittedThisRound != s.CurrentBet || !p.HasActedThisRound {
			return false
		}
	}
	return true
}

// AdvanceStreet moves from the settled current street to the next one,
// resetting per-round commitments and setting first-to-act to the first
// active-or-all-in seat left of the button.
func (s *State) AdvanceStreet() error {
	if !s.streetSettled() && s.nonFoldedCount() > 1 {
		return ErrStreetNotComplete
	}
	switch s.Street {
	case Preflop:
		s.Street = Flop
	case Flop:
		s.Street = Turn
	case Turn:
		s.Street = River
	default:
		return fmt.Errorf("betting: no street follows %s", s.Street)
	}

	for i := range s.Players {
		s.Players[i].CommittedThisRound = 0
		s.Players[i].HasActedThisRound = false
	}
	s.CurrentBet = 0
	s.LastFullRaiseAmount = s.Config.Stakes.BigBlind

	s.FirstToAct = s.firstActiveOrAllInLeftOf(s.Config.Button)
	s.ToAct = s.FirstToAct
	return nil
}

func (s *State) firstActiveOrAllInLeftOf(button SeatID) SeatID {
	order := s.seatOrder()
	n := len(order)
	startIdx := 0
	for i, seat := range order {
		if seat == button {
			startIdx = i
			break
		}
	}
	for step := 1; step <= n; step++ {
		idx := (startIdx + step) % n
		p := s.Players[idx]
		if p.Status == Active || p.Status == AllIn {
			return p.Seat
		}
	}
	return button
}

// SlicePots recomputes main/side pots from the current committed_total
// values: distinct thresholds among all-in and active seats, each layer
// collecting min(threshold, commitment) from every seat and eligible to
// every non-folded seat whose commitment reaches that threshold.
func (s *State) SlicePots() Pots {
	thresholdSet := map[Chips]bool{}
	for _, p := range s.Players {
		if p.Status == Folded {
			continue
		}
		if p.Status == AllIn {
			thresholdSet[p.CommittedTotal] = true
		}
	}
	maxActive := Chips(0)
	for _, p := range s.Players {
		if p.Status == Active && p.CommittedTotal > maxActive {
			maxActive = p.CommittedTotal
		}
	}
	if maxActive > 0 {
		thresholdSet[maxActive] = true
	}

	thresholds := make([]Chips, 0, len(thresholdSet))
	for t := range thresholdSet {
		thresholds = append(thresholds, t)
	}
	sortChips(thresholds)

	var pots []Pot
	prev := Chips(0)
	for _, t := range thresholds {
		layer := Pot{}
		isAllInCap := false
		for _, p := range s.Players {
			contribution := minChips(p.CommittedTotal, t) - minChips(p.CommittedTotal, prev)
			if contribution > 0 {
				layer.Amount += contribution
			}
			if p.Status != Folded && p.CommittedTotal >= t {
				layer.Eligible = append(layer.Eligible, p.Seat)
			}
			if p.Status == AllIn && p.CommittedTotal == t {
				isAllInCap = true
			}
		}
		if isAllInCap {
			cap := t
			layer.Cap = &cap
		}
		if layer.Amount > 0 {
			pots = append(pots, layer)
		}
		prev = t
	}

	if len(pots) == 0 {
		return Pots{}
	}
	return Pots{Main: pots[0], Sides: pots[1:]}
}

func sortChips(c []Chips) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j-1] > c[j]; j-- {
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

// ValidateInvariants checks the global invariants that must hold after
// every transition: per-seat chip conservation, pot/commitment
// conservation, folded-seat pot exclusion, and a sane minimum raise.
func (s *State) ValidateInvariants() error {
	for _, p := range s.Players {
		if p.CommittedTotal < p.CommittedThisRound {
			return fmt.Errorf("betting: seat %d committed_total < committed_this_round", p.Seat)
		}
		if p.CommittedThisRound < 0 {
			return fmt.Errorf("betting: seat %d has negative committed_this_round", p.Seat)
		}
	}

	pots := s.SlicePots()
	var potSum Chips
	potSum += pots.Main.Amount
	for _, side := range pots.Sides {
		potSum += side.Amount
	}
	var committedSum Chips
	for _, p := range s.Players {
		committedSum += p.CommittedTotal
	}
	if potSum != committedSum {
		return fmt.Errorf("betting: pot sum %d != committed sum %d", potSum, committedSum)
	}

	for _, seat := range pots.Main.Eligible {
		if p := s.Player(seat); p != nil && p.Status == Folded {
			return fmt.Errorf("betting: folded seat %d eligible for main pot", seat)
		}
	}
	for _, side := range pots.Sides {
		for _, seat := range side.Eligible {
			if p := s.Player(seat); p != nil && p.Status == Folded {
				return fmt.Errorf("betting: folded seat %d eligible for side pot", seat)
			}
		}
	}

	if s.LastFullRaiseAmount < s.Config.Stakes.BigBlind {
		return fmt.Errorf("betting: last_full_raise_amount %d below big blind %d", s.LastFullRaiseAmount, s.Config.Stakes.BigBlind)
	}
	return nil
}
