package rules

import (
	"strconv"

	"github.com/lox/pokerrating/internal/hand"
)

const foldRuleName = "Fold Rule"

func (e *evaluator) fold(gs *GameState) ([]Decision, error) {
	if !gs.Bet.IsFold() || gs.Index.Round == hand.River {
		return nil, nil
	}
	pp, err := gs.Current()
	if err != nil {
		return nil, err
	}
	toCall, err := gs.CallAmountOnFold()
	if err != nil {
		return nil, err
	}
	eq := Equity(toCall, gs.Bet.Pot)
	pof := POF(eq, pp.WinPercentage)
	e.log(gs).
		Float64("win", pp.WinPercentage).
		Float64("showdown", pp.ShowdownPercentage).
		Float64("equity", eq).
		Float64("pof", pof).
		Msg("Fold graded by POF")

	cat := foldCategoryOf(pof)
	points, err := e.points.fold.points(gs.Index.Round, cat)
	if err != nil {
		return nil, err
	}
	m := withMetrics(eq, pof)
	d, err := gs.decision(foldRuleName, cat.String(), points, pp, m,
		"Calculated call amount on fold: "+strconv.FormatFloat(toCall, 'f', -1, 64))
	if err != nil {
		return nil, err
	}
	more, err := extras(&e.points.fold, foldRuleName, gs, cat, pp, m)
	if err != nil {
		return nil, err
	}
	return append([]Decision{d}, more...), nil
}

func foldCategoryOf(pof float64) FoldCategory {
	switch {
	case pof >= 0:
		return CorrectFold
	case pof >= -20:
		return NonPenalizedFold
	default:
		return IncorrectFold
	}
}
