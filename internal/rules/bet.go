package rules

import (
	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/hand"
)

const (
	betRuleName      = "Bet Rule"
	winningThreshold = 50
	// failed bluffs that still take the pot score a flat amount
	bluffWinsPoints = 10
)

func (e *evaluator) bet(gs *GameState) ([]Decision, error) {
	if !gs.Bet.IsAnyBet() || gs.Index.Round == hand.River {
		return nil, nil
	}
	pp, err := gs.Current()
	if err != nil {
		return nil, err
	}
	best, err := gs.HasBestOrTiedHand()
	if err != nil {
		return nil, err
	}
	_, crosses := gs.FirstWinCrossing(winningThreshold)

	if best {
		e.log(gs).Float64("win", pp.WinPercentage).Msg("Player has the best hand")
		if pp.WinPercentage >= winningThreshold || crosses {
			return e.betDecisions(gs, GoodBet, pp, metrics{})
		}
		return e.betByPOF(gs, pp, false)
	}

	e.log(gs).Float64("win", pp.WinPercentage).Msg("Player does not have the best hand")
	if crosses {
		folded, err := gs.AllFoldAfterBet()
		if err != nil {
			return nil, err
		}
		if folded {
			return e.betDecisions(gs, SuccessfulBluff, pp, metrics{})
		}
		return e.betDecisions(gs, GoodBet, pp, metrics{})
	}
	return e.betByPOF(gs, pp, true)
}

// betByPOF grades the bet against the equity it needed. Bluffs get the
// bluff categories in the penalized bands.
func (e *evaluator) betByPOF(gs *GameState, pp equity.PlayerPercentage, bluff bool) ([]Decision, error) {
	eq, err := BetEquity(gs.Bet)
	if err != nil {
		return nil, err
	}
	pof := POF(eq, pp.WinPercentage)
	e.log(gs).Float64("equity", eq).Float64("pof", pof).Bool("bluff", bluff).Msg("Bet graded by POF")

	m := withMetrics(eq, pof)
	if pof < 0 {
		return e.betDecisions(gs, GoodBet, pp, metrics{})
	}
	return e.betDecisions(gs, betCategoryOf(pof, bluff), pp, m)
}

// betCategoryOf maps a POF to its band
func betCategoryOf(pof float64, bluff bool) BetCategory {
	switch {
	case pof < 0:
		return GoodBet
	case pof < 20:
		return NonPenalizedBet
	case pof < 50:
		if bluff {
			return BadBluff
		}
		return BadBet
	case pof < 75:
		if bluff {
			return TerribleBluff
		}
		return TerribleBet
	default:
		if bluff {
			return HorribleBluff
		}
		return HorribleBet
	}
}

func (e *evaluator) betDecisions(gs *GameState, cat BetCategory, pp equity.PlayerPercentage, m metrics) ([]Decision, error) {
	if cat.IsFailedBluff() {
		wins, err := gs.LeadsToWinningHand()
		if err != nil {
			return nil, err
		}
		if wins {
			d, err := gs.decision(betRuleName, cat.String(), bluffWinsPoints, pp, m,
				"Unsuccessful bluff leads to you winning hand. Turn points into +10.")
			if err != nil {
				return nil, err
			}
			return []Decision{d}, nil
		}
	}

	points, err := e.points.bet.points(gs.Index.Round, cat)
	if err != nil {
		return nil, err
	}
	d, err := gs.decision(betRuleName, cat.String(), points, pp, m)
	if err != nil {
		return nil, err
	}
	more, err := extras(&e.points.bet, betRuleName, gs, cat, pp, m)
	if err != nil {
		return nil, err
	}
	return append([]Decision{d}, more...), nil
}
