// Package equity supplies per-player win and showdown percentages for a
// point in a hand, backed by the holdem calculator oracle and an embedded
// preflop table.
package equity

import (
	"context"
	"sort"

	"github.com/lox/pokerrating/internal/deck"
	"github.com/lox/pokerrating/internal/hand"
)

const holeSeparator = "|"

// PlayerPercentage is a point-in-time equity snapshot for one player.
// Rank and RankName are only known once the board is complete.
type PlayerPercentage struct {
	UserID             string  `json:"userId"`
	WinPercentage      float64 `json:"winPercentage"`
	ShowdownPercentage float64 `json:"showdownPercentage"`
	Rank               *int    `json:"rank,omitempty"`
	RankName           *string `json:"rankName,omitempty"`
}

// Request describes the contested state to evaluate
type Request struct {
	Players []hand.Player
	Board   []deck.Card
	Dead    []deck.Card
	// Showdown, when non-empty, is reused instead of recomputing showdown
	// percentages.
	Showdown map[string]float64
}

// Result maps user id to that player's percentages
type Result map[string]PlayerPercentage

// Showdown extracts the user id to showdown percentage map for reuse
func (r Result) Showdown() map[string]float64 {
	out := make(map[string]float64, len(r))
	for id, p := range r {
		out[id] = p.ShowdownPercentage
	}
	return out
}

// Sorted returns the percentages ordered by user id
func (r Result) Sorted() []PlayerPercentage {
	out := make([]PlayerPercentage, 0, len(r))
	for _, p := range r {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Supplier computes percentages for a contested state
type Supplier interface {
	Calculate(ctx context.Context, req Request) (Result, error)
}

// Oracle is the remote holdem calculator
type Oracle interface {
	WinPercentage(ctx context.Context, req WinRequest) (*WinResponse, error)
	ShowdownPercentage(ctx context.Context, req ShowdownRequest) (*ShowdownResponse, error)
}

// WinRequest asks for the win percentage of every listed hole-card pair.
// Players are "Ah|Kd" strings.
type WinRequest struct {
	Players  []string    `json:"players"`
	Board    []deck.Card `json:"board,omitempty"`
	Excludes []deck.Card `json:"excludes,omitempty"`
}

type HandRank struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type WinPlayer struct {
	Cards         string    `json:"cards"`
	WinPercentage float64   `json:"winPercentage"`
	HandRank      *HandRank `json:"handRank,omitempty"`
}

type WinResponse struct {
	Players        []WinPlayer `json:"players"`
	TiesPercentage float64     `json:"tiesPercentage"`
	OperationTime  *float64    `json:"operationTime,omitempty"`
}

// ShowdownRequest asks for the share of opponent holdings the player is a
// favourite against on the given board.
type ShowdownRequest struct {
	Board  []deck.Card `json:"board"`
	Player []deck.Card `json:"player"`
}

type ShowdownResponse struct {
	ShowdownPercentage float64  `json:"showdownPercentage"`
	OperationTime      *float64 `json:"operationTime,omitempty"`
}

// HoleCards renders a player's hole cards the way the oracle keys them
func HoleCards(cards []deck.Card) string {
	return deck.Join(cards, holeSeparator)
}
