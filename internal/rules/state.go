package rules

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/hand"
)

// ErrInconsistent marks a violated traversal or data-model invariant. It
// aborts the whole hand.
var ErrInconsistent = errors.New("inconsistent game state")

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

// GameStateIndex points at one turn: the round and the bet index within it
type GameStateIndex struct {
	Round hand.Round `json:"bettingRound"`
	Turn  int        `json:"playerTurnIndex"`
}

// Compare orders by round, then turn
func (i GameStateIndex) Compare(o GameStateIndex) int {
	if c := cmp.Compare(i.Round, o.Round); c != 0 {
		return c
	}
	return cmp.Compare(i.Turn, o.Turn)
}

func (i GameStateIndex) String() string {
	return fmt.Sprintf("(%s, %d)", i.Round, i.Turn)
}

// Percentages is the equity snapshot of every contesting player per turn
type Percentages map[GameStateIndex]map[string]equity.PlayerPercentage

// At returns the snapshot for an index
func (p Percentages) At(idx GameStateIndex) (map[string]equity.PlayerPercentage, error) {
	m, ok := p[idx]
	if !ok {
		return nil, inconsistent("Game state index player percentage map is missing value for: %s", idx)
	}
	return m, nil
}

// Player returns one player's snapshot at an index
func (p Percentages) Player(idx GameStateIndex, userID string) (equity.PlayerPercentage, error) {
	m, err := p.At(idx)
	if err != nil {
		return equity.PlayerPercentage{}, err
	}
	pp, ok := m[userID]
	if !ok {
		return equity.PlayerPercentage{}, inconsistent(
			"Game state index player percentage map is missing value for: %s and user ID: %s", idx, userID)
	}
	return pp, nil
}

// Indexes returns the populated indexes in round-then-turn order
func (p Percentages) Indexes() []GameStateIndex {
	out := make([]GameStateIndex, 0, len(p))
	for idx := range p {
		out = append(out, idx)
	}
	slices.SortFunc(out, GameStateIndex.Compare)
	return out
}

// GameState is the read-only view of one turn handed to every rule
type GameState struct {
	UserID      string
	Players     []hand.Player
	Index       GameStateIndex
	Bet         hand.Bet
	Position    BetPosition
	RoundBets   hand.RoundBets
	Percentages Percentages
}

// IsWinner reports whether the user is a declared winner of the hand
func (gs *GameState) IsWinner(userID string) bool {
	for _, p := range gs.Players {
		if p.UserID == userID && p.Winner {
			return true
		}
	}
	return false
}

// Current returns the actor's percentages at this turn
func (gs *GameState) Current() (equity.PlayerPercentage, error) {
	return gs.Percentages.Player(gs.Index, gs.UserID)
}

// ByWinDesc returns this turn's snapshots ordered by win percentage,
// highest first. Ties keep user id order.
func (gs *GameState) ByWinDesc() ([]equity.PlayerPercentage, error) {
	return gs.sortedBy(func(p equity.PlayerPercentage) float64 { return p.WinPercentage })
}

// ByShowdownDesc returns this turn's snapshots ordered by showdown
// percentage, highest first.
func (gs *GameState) ByShowdownDesc() ([]equity.PlayerPercentage, error) {
	return gs.sortedBy(func(p equity.PlayerPercentage) float64 { return p.ShowdownPercentage })
}

func (gs *GameState) sortedBy(key func(equity.PlayerPercentage) float64) ([]equity.PlayerPercentage, error) {
	m, err := gs.Percentages.At(gs.Index)
	if err != nil {
		return nil, err
	}
	out := make([]equity.PlayerPercentage, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b equity.PlayerPercentage) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}
