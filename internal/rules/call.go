package rules

import (
	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/hand"
)

const callRuleName = "Call Rule"

func (e *evaluator) call(gs *GameState) ([]Decision, error) {
	if !gs.Bet.IsCall() || gs.Index.Round == hand.River {
		return nil, nil
	}
	pp, err := gs.Current()
	if err != nil {
		return nil, err
	}
	eq, err := CallEquity(gs.Bet)
	if err != nil {
		return nil, err
	}
	pof := POF(eq, pp.WinPercentage)
	e.log(gs).
		Float64("win", pp.WinPercentage).
		Float64("equity", eq).
		Float64("pof", pof).
		Msg("Call graded by POF")

	return e.callDecisions(gs, callCategoryOf(pof), pp, withMetrics(eq, pof))
}

func callCategoryOf(pof float64) CallCategory {
	switch {
	case pof < 0:
		return GoodCall
	case pof < 20:
		return NonPenalizedCall
	case pof < 75:
		return BadCall
	case pof < 150:
		return TerribleCall
	default:
		return HorribleCall
	}
}

func (e *evaluator) callDecisions(gs *GameState, cat CallCategory, pp equity.PlayerPercentage, m metrics) ([]Decision, error) {
	points, err := e.points.call.points(gs.Index.Round, cat)
	if err != nil {
		return nil, err
	}
	d, err := gs.decision(callRuleName, cat.String(), points, pp, m)
	if err != nil {
		return nil, err
	}
	more, err := extras(&e.points.call, callRuleName, gs, cat, pp, m)
	if err != nil {
		return nil, err
	}
	return append([]Decision{d}, more...), nil
}
