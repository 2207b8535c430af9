package rules

import "github.com/lox/pokerrating/internal/hand"

const (
	crackedRuleName = "Cracked Rule"
	// win percentage lead considered too big to give away for free
	crackedLead = 50
)

// cracked penalizes checking or calling with a big lead that ends up losing
func (e *evaluator) cracked(gs *GameState) ([]Decision, error) {
	if gs.Bet.IsAnyBet() || gs.Bet.IsFold() || gs.Index.Round == hand.River {
		return nil, nil
	}
	ranked, err := gs.ByWinDesc()
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, inconsistent("Top winner player percentages are empty on: %s", gs.Index)
	}
	if len(ranked) == 1 {
		return nil, nil
	}
	pp, err := gs.Current()
	if err != nil {
		return nil, err
	}
	first, second := ranked[0], ranked[1]
	if first.UserID != pp.UserID {
		return nil, nil
	}
	if first.WinPercentage-second.WinPercentage < crackedLead || gs.IsWinner(first.UserID) {
		return nil, nil
	}

	e.log(gs).
		Float64("win", first.WinPercentage).
		Float64("second", second.WinPercentage).
		Msg("Lead cracked")
	points, err := e.points.cracked.points(gs.Index.Round)
	if err != nil {
		return nil, err
	}
	d, err := gs.decision(crackedRuleName, "Cracked", points, pp, metrics{})
	if err != nil {
		return nil, err
	}
	more, err := e.points.crackedExtras(crackedRuleName, gs, pp)
	if err != nil {
		return nil, err
	}
	return append([]Decision{d}, more...), nil
}
