// Package engine walks a hand's betting rounds, builds the equity snapshot
// of every turn and runs the rule pipeline over each actionable turn.
package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/lox/pokerrating/internal/deck"
	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/rules"
)

// blinds are the forced pre-flop bets that are never rated
const blinds = 2

// Result is the outcome of rating one hand
type Result struct {
	Decisions   []rules.Decision  `json:"decisions"`
	Percentages rules.Percentages `json:"-"`
}

// Engine rates hands. It is safe for concurrent use.
type Engine struct {
	supplier equity.Supplier
	pipeline *rules.Pipeline
	logger   zerolog.Logger
}

// New creates an engine over the equity supplier and rule pipeline
func New(logger zerolog.Logger, supplier equity.Supplier, pipeline *rules.Pipeline) *Engine {
	return &Engine{
		supplier: supplier,
		pipeline: pipeline,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// contention is who is still in the hand and which hole cards are dead.
// Folding produces a new snapshot.
type contention struct {
	players []hand.Player
	dead    []deck.Card
}

func (c contention) without(userID string) (contention, error) {
	idx := -1
	for i, p := range c.players {
		if p.UserID != userID {
			continue
		}
		if idx >= 0 {
			return c, fmt.Errorf("%w: Multiple players found by user ID: %s", rules.ErrInconsistent, userID)
		}
		idx = i
	}
	if idx < 0 {
		return c, fmt.Errorf("%w: Player not found by user ID: %s", rules.ErrInconsistent, userID)
	}
	folded := c.players[idx]
	return contention{
		players: slices.Delete(slices.Clone(c.players), idx, idx+1),
		dead:    append(slices.Clone(c.dead), folded.Cards...),
	}, nil
}

func (e *Engine) calculate(ctx context.Context, c contention, board []deck.Card, showdown map[string]float64) (equity.Result, error) {
	return e.supplier.Calculate(ctx, equity.Request{
		Players:  c.players,
		Board:    board,
		Dead:     c.dead,
		Showdown: showdown,
	})
}

// Percentages computes the equity snapshot of every turn. Snapshots are only
// recomputed on a round's first turn and on folds; a fold on the round's last
// turn adds a trailing snapshot for the state after it.
func (e *Engine) Percentages(ctx context.Context, h *hand.GameHand) (rules.Percentages, error) {
	pcts := make(rules.Percentages)
	state := contention{players: slices.Clone(h.Players)}

	for _, round := range hand.Rounds {
		board := h.BoardFor(round)
		bets := h.RoundBets.Bets(round)
		var showdown map[string]float64

		for i, bet := range bets {
			idx := rules.GameStateIndex{Round: round, Turn: i}
			if i > 0 && !bet.IsFold() {
				prev, ok := pcts[rules.GameStateIndex{Round: round, Turn: i - 1}]
				if !ok {
					return nil, fmt.Errorf("%w: Missing player percentages for %s on turn %d", rules.ErrInconsistent, round, i-1)
				}
				pcts[idx] = prev
				continue
			}

			res, err := e.calculate(ctx, state, board, showdown)
			if err != nil {
				return nil, fmt.Errorf("percentages for %s: %w", idx, err)
			}
			pcts[idx] = res
			if bet.IsFold() {
				if state, err = state.without(bet.UserID); err != nil {
					return nil, err
				}
			}
			if i == 0 {
				showdown = res.Showdown()
			}
			if i == len(bets)-1 {
				trailing := rules.GameStateIndex{Round: round, Turn: i + 1}
				res, err := e.calculate(ctx, state, board, showdown)
				if err != nil {
					return nil, fmt.Errorf("percentages for %s: %w", trailing, err)
				}
				pcts[trailing] = res
			}
		}
	}
	return pcts, nil
}

// Execute rates every actionable turn of the hand. Decisions are ordered by
// round, then turn.
func (e *Engine) Execute(ctx context.Context, h *hand.GameHand) (*Result, error) {
	pcts, err := e.Percentages(ctx, h)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Str("session_id", h.SessionID).
		Int("snapshots", len(pcts)).
		Msg("Percentages computed")

	var decisions []rules.Decision
	for _, round := range hand.Rounds {
		bets := h.RoundBets.Bets(round)
		for i, bet := range bets {
			if round == hand.PreFlop && i < blinds {
				continue
			}
			gs := &rules.GameState{
				UserID:      bet.UserID,
				Players:     h.Players,
				Index:       rules.GameStateIndex{Round: round, Turn: i},
				Bet:         bet,
				Position:    rules.PositionOf(i, len(bets)),
				RoundBets:   h.RoundBets,
				Percentages: pcts,
			}
			ds, err := e.pipeline.Evaluate(ctx, gs)
			if err != nil {
				return nil, err
			}
			decisions = append(decisions, ds...)
		}
	}

	e.logger.Debug().
		Str("session_id", h.SessionID).
		Int("decisions", len(decisions)).
		Msg("Rules executed")
	return &Result{Decisions: decisions, Percentages: pcts}, nil
}
