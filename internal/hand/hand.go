// Package hand defines a single Texas Hold'em hand as submitted for rating:
// players, board, and the ordered bets of every betting round.
package hand

import (
	"encoding/json"
	"fmt"

	"github.com/lox/pokerrating/internal/deck"
)

// BetType is the action a player took
type BetType uint8

const (
	Call BetType = iota
	Check
	Fold
	Raise
	SmallBlind
	BigBlind
	AllIn
)

var betTypeText = [...]string{
	Call:       "call",
	Check:      "check",
	Fold:       "fold",
	Raise:      "raise",
	SmallBlind: "small-blind",
	BigBlind:   "big-blind",
	AllIn:      "all-in",
}

// ParseBetType converts the wire text ("call", "small-blind", ...) to a BetType
func ParseBetType(text string) (BetType, error) {
	for i, t := range betTypeText {
		if t == text {
			return BetType(i), nil
		}
	}
	return 0, fmt.Errorf("invalid bet type: %q", text)
}

func (t BetType) String() string {
	if int(t) < len(betTypeText) {
		return betTypeText[t]
	}
	return "unknown"
}

func (t BetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *BetType) UnmarshalText(text []byte) error {
	v, err := ParseBetType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Round is a betting round; rounds are totally ordered
type Round uint8

const (
	PreFlop Round = iota
	Flop
	Turn
	River
)

// Rounds lists the betting rounds in play order
var Rounds = [...]Round{PreFlop, Flop, Turn, River}

var roundText = [...]string{
	PreFlop: "pre-flop",
	Flop:    "flop",
	Turn:    "turn",
	River:   "river",
}

// ParseRound converts the wire text ("pre-flop", "flop", ...) to a Round
func ParseRound(text string) (Round, error) {
	for i, t := range roundText {
		if t == text {
			return Round(i), nil
		}
	}
	return 0, fmt.Errorf("invalid betting round: %q", text)
}

func (r Round) String() string {
	if int(r) < len(roundText) {
		return roundText[r]
	}
	return "unknown"
}

func (r Round) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Round) UnmarshalText(text []byte) error {
	v, err := ParseRound(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// BoardSize is the number of community cards visible during the round
func (r Round) BoardSize() int {
	switch r {
	case Flop:
		return 3
	case Turn:
		return 4
	case River:
		return 5
	default:
		return 0
	}
}

// Bet is one action in a round. Amount and Pot are in chips; Pot is the pot
// size at the moment of the action.
type Bet struct {
	UserID string  `json:"userId"`
	Type   BetType `json:"type"`
	Amount float64 `json:"amount"`
	Pot    float64 `json:"pot"`
}

// IsAnyBet reports raise-class actions: raise, all-in and both blinds
func (b Bet) IsAnyBet() bool {
	switch b.Type {
	case Raise, AllIn, SmallBlind, BigBlind:
		return true
	}
	return false
}

func (b Bet) IsCall() bool     { return b.Type == Call }
func (b Bet) IsCheck() bool    { return b.Type == Check }
func (b Bet) IsFold() bool     { return b.Type == Fold }
func (b Bet) IsAllIn() bool    { return b.Type == AllIn }
func (b Bet) IsBigBlind() bool { return b.Type == BigBlind }

// IsAnyBlind reports a forced small or big blind
func (b Bet) IsAnyBlind() bool {
	return b.Type == SmallBlind || b.Type == BigBlind
}

// Player is a seat in the hand with its hole cards
type Player struct {
	UserID string      `json:"userId"`
	Winner bool        `json:"winner"`
	Cards  []deck.Card `json:"cards"`
}

// RoundBets holds the bet sequence of every round
type RoundBets struct {
	PreFlop []Bet `json:"pre-flop"`
	Flop    []Bet `json:"flop"`
	Turn    []Bet `json:"turn"`
	River   []Bet `json:"river"`
}

// Bets returns the bets of the given round
func (rb RoundBets) Bets(r Round) []Bet {
	switch r {
	case PreFlop:
		return rb.PreFlop
	case Flop:
		return rb.Flop
	case Turn:
		return rb.Turn
	case River:
		return rb.River
	default:
		return nil
	}
}

// UnmarshalJSON normalizes absent rounds to empty lists
func (rb *RoundBets) UnmarshalJSON(data []byte) error {
	type plain RoundBets
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*rb = RoundBets(v)
	for _, p := range []*[]Bet{&rb.PreFlop, &rb.Flop, &rb.Turn, &rb.River} {
		if *p == nil {
			*p = []Bet{}
		}
	}
	return nil
}

// GameHand is the unit of work for rating: one complete hand
type GameHand struct {
	ApplicationID string      `json:"applicationId"`
	SessionID     string      `json:"sessionId"`
	BoardCards    []deck.Card `json:"boardCards"`
	Players       []Player    `json:"players"`
	RoundBets     RoundBets   `json:"roundBets"`
}

// Player returns the declared player with the given user id
func (h *GameHand) Player(userID string) (Player, bool) {
	for _, p := range h.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// IsWinner reports whether the user is flagged as a winner of the hand
func (h *GameHand) IsWinner(userID string) bool {
	p, ok := h.Player(userID)
	return ok && p.Winner
}

// BoardFor returns the community cards visible during the round, nil pre-flop.
// A short board yields the cards that exist.
func (h *GameHand) BoardFor(r Round) []deck.Card {
	n := r.BoardSize()
	if n == 0 {
		return nil
	}
	if n > len(h.BoardCards) {
		n = len(h.BoardCards)
	}
	return h.BoardCards[:n:n]
}
