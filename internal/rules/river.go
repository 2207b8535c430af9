package rules

import (
	"math"

	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/hand"
)

const (
	riverRuleName = "River Rule"
	// each re-raise after a bluff moves the score by this much
	bluffReRaisePoints = 20
)

const (
	checkCheckDecision       = "Winning hand and he checks and you check"
	foldOnWinningDecision    = "Winning hand and he bets and you fold"
	noReRaiseDecision        = "Winning hand and he bets and you do not re-raise"
	youBetDecision           = "You have winning hand and you bet"
	youBetReRaiseDecision    = "You bet, he raises, you re-raise with best hand to try to get max value"
	opponentBetRaiseDecision = "Opponent bets and You raise with the best hand in order to try to get max value"
	bluffReRaiseDecision     = "You are beat and you bet, he re-raises, you re-raise and everyone folds"
	callBeatenDecision       = "You are beat and he bets and you call"
	foldBeatenDecision       = "You are beat and he bets and you fold"
)

func (e *evaluator) river(gs *GameState) ([]Decision, error) {
	if gs.Index.Round != hand.River {
		return nil, nil
	}
	ranked, err := gs.ByWinDesc()
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, inconsistent("At least one player percentage must exist on river")
	}
	pp, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if pp.WinPercentage == 100 {
		e.log(gs).Msg("River winner")
		return e.riverWinner(gs, pp)
	}
	return e.riverNonWinner(gs, pp)
}

func anyCheck(bets []hand.Bet) bool {
	for _, b := range bets {
		if b.IsCheck() {
			return true
		}
	}
	return false
}

func anyBet(bets []hand.Bet) bool {
	for _, b := range bets {
		if b.IsAnyBet() {
			return true
		}
	}
	return false
}

func anyBetBy(bets []hand.Bet, userID string) bool {
	for _, b := range bets {
		if b.UserID == userID && b.IsAnyBet() {
			return true
		}
	}
	return false
}

// single builds a decision list from one table-driven river decision
func (e *evaluator) single(gs *GameState, table showdownPoints, what, name string, pp equity.PlayerPercentage) ([]Decision, error) {
	points, err := table.require(ShowdownTypeOf(pp.ShowdownPercentage), what)
	if err != nil {
		return nil, err
	}
	d, err := gs.decision(riverRuleName, name, points, pp, metrics{})
	if err != nil {
		return nil, err
	}
	return []Decision{d}, nil
}

func (e *evaluator) riverWinner(gs *GameState, pp equity.PlayerPercentage) ([]Decision, error) {
	river := &e.points.river
	prev := gs.PreviousBets()

	if gs.Bet.IsCheck() && anyCheck(prev) {
		if gs.Position == LastToAct {
			return e.single(gs, river.winningHandOnLastCheck, "Winning hand on last check", checkCheckDecision, pp)
		}
		out, err := e.single(gs, river.failedTrap, "Failed trap", checkCheckDecision, pp)
		if err != nil {
			return nil, err
		}
		more, err := e.points.crackedExtras(riverRuleName, gs, pp)
		if err != nil {
			return nil, err
		}
		return append(out, more...), nil
	}

	betBefore := anyBet(prev)
	switch {
	case gs.Bet.IsFold():
		out, err := e.single(gs, river.foldOnWinningHand, "Fold on winning hand", foldOnWinningDecision, pp)
		if err != nil {
			return nil, err
		}
		more, err := extras(&e.points.fold, riverRuleName, gs, IncorrectFold, pp, metrics{})
		if err != nil {
			return nil, err
		}
		return append(out, more...), nil
	case betBefore && !gs.Bet.IsAnyBet():
		return e.single(gs, river.winningHandNoReRaise, "Winning hand no re-raise", noReRaiseDecision, pp)
	case gs.Bet.IsAnyBet() && !betBefore:
		return e.single(gs, river.winningHandYouBet, "Winning hand and you bet", youBetDecision, pp)
	case gs.Bet.IsAnyBet():
		return e.raiseForMaxValue(gs, pp)
	}
	return nil, nil
}

// raiseForMaxValue scores a re-raise with the best hand, depending on who
// opened the betting this round.
func (e *evaluator) raiseForMaxValue(gs *GameState, pp equity.PlayerPercentage) ([]Decision, error) {
	river := &e.points.river
	youBetFirst := false
	for _, b := range gs.PreviousBets() {
		if b.IsAnyBet() {
			youBetFirst = b.UserID == gs.UserID
			break
		}
	}
	if youBetFirst {
		return e.single(gs, river.youBetRaiseForMax, youBetReRaiseDecision, youBetReRaiseDecision, pp)
	}
	out, err := e.single(gs, river.opponentBetsRaiseForMax, opponentBetRaiseDecision, opponentBetRaiseDecision, pp)
	if err != nil {
		return nil, err
	}
	more, err := extras(&e.points.bet, riverRuleName, gs, GoodBet, pp, metrics{})
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

func (e *evaluator) riverNonWinner(gs *GameState, pp equity.PlayerPercentage) ([]Decision, error) {
	m, err := gs.Percentages.At(gs.Index)
	if err != nil {
		return nil, err
	}
	topRank := math.MinInt
	for _, p := range m {
		if p.Rank == nil {
			return nil, inconsistent("Player rank value is required on river")
		}
		topRank = max(topRank, *p.Rank)
	}
	if *pp.Rank == topRank {
		if gs.Bet.IsAnyBet() && anyBet(gs.PreviousBets()) {
			return e.raiseForMaxValue(gs, pp)
		}
		return nil, nil
	}
	return e.riverBeaten(gs, pp)
}

// riverBeaten handles an actor that does not hold the best ranked hand
func (e *evaluator) riverBeaten(gs *GameState, pp equity.PlayerPercentage) ([]Decision, error) {
	river := &e.points.river
	st := ShowdownTypeOf(pp.ShowdownPercentage)

	switch {
	case gs.Bet.IsAnyBet() && !anyBetBy(gs.PreviousBets(), gs.UserID):
		return e.riverBluff(gs, pp, st)
	case gs.Bet.IsCall():
		out, err := e.single(gs, river.callOnNonBestHand, "Call on non best hand", callBeatenDecision, pp)
		if err != nil {
			return nil, err
		}
		more, err := extras(&e.points.call, riverRuleName, gs, BadCall, pp, metrics{})
		if err != nil {
			return nil, err
		}
		return append(out, more...), nil
	case gs.Bet.IsFold():
		out, err := e.single(gs, river.foldOnNonBestHand, "Fold on non best hand", foldBeatenDecision, pp)
		if err != nil {
			return nil, err
		}
		more, err := extras(&e.points.fold, riverRuleName, gs, CorrectFold, pp, metrics{})
		if err != nil {
			return nil, err
		}
		return append(out, more...), nil
	}
	return nil, nil
}

// riverBluff scores a first bet made without the best hand. It succeeds when
// every opponent has folded by the end of the round.
func (e *evaluator) riverBluff(gs *GameState, pp equity.PlayerPercentage, st ShowdownType) ([]Decision, error) {
	river := &e.points.river
	succeeded, err := gs.OthersFoldByRoundEnd()
	if err != nil {
		return nil, err
	}
	eq, err := BetEquity(gs.Bet)
	if err != nil {
		return nil, err
	}
	pof := POF(eq, pp.WinPercentage)

	var (
		points, reRaise int64
		name            string
		cat             BetCategory
	)
	if succeeded {
		points, err = river.successfulBluff.require(st, "Successful bluff")
		reRaise, name, cat = bluffReRaisePoints, "Successful Bluff on "+st.String(), SuccessfulBluff
	} else {
		points, err = river.failedBluff.require(st, "Failed bluff")
		reRaise, name, cat = -bluffReRaisePoints, "Failed Bluff on "+st.String(), betCategoryOf(pof, true)
	}
	if err != nil {
		return nil, err
	}
	e.log(gs).
		Bool("succeeded", succeeded).
		Float64("equity", eq).
		Float64("pof", pof).
		Msg("River bluff")

	m := withMetrics(eq, pof)
	d, err := gs.decision(riverRuleName, name, points, pp, metrics{})
	if err != nil {
		return nil, err
	}
	bluffExtras, err := extras(&e.points.bet, riverRuleName, gs, cat, pp, m)
	if err != nil {
		return nil, err
	}
	out := append([]Decision{d}, bluffExtras...)

	for _, b := range gs.AfterBets() {
		if !b.IsAnyBet() || b.UserID != gs.UserID {
			continue
		}
		d, err := gs.decision(riverRuleName, bluffReRaiseDecision, reRaise, pp, metrics{})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		out = append(out, bluffExtras...)
	}
	return out, nil
}
