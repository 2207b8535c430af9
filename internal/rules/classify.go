package rules

import (
	"math"

	"github.com/lox/pokerrating/internal/hand"
)

// roundHalfUp rounds to the nearest integer, halves toward +Inf
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// BetEquity is the equity a raise-class action needs to break even:
// amount / (pot + 2*amount), as a whole percentage.
func BetEquity(b hand.Bet) (float64, error) {
	if !b.IsAnyBet() {
		return 0, inconsistent("bet equity does not support bet type: %s", b.Type)
	}
	if b.Amount <= 0 {
		return 0, inconsistent("Bet amount must be greater then 0 for bet equity")
	}
	return roundHalfUp(b.Amount / (b.Pot + 2*b.Amount) * 100), nil
}

// CallEquity is the equity a call needs to break even
func CallEquity(b hand.Bet) (float64, error) {
	if !b.IsCall() {
		return 0, inconsistent("call equity does not support bet type: %s", b.Type)
	}
	if b.Amount <= 0 {
		return 0, inconsistent("Bet amount must be greater then 0 for call equity")
	}
	return Equity(b.Amount, b.Pot), nil
}

// Equity is callAmount / (pot + callAmount) as a whole percentage
func Equity(callAmount, pot float64) float64 {
	return roundHalfUp(callAmount / (pot + callAmount) * 100)
}

// POF is the signed deviation of the required equity from the actual win
// percentage. Positive means the action was not justified by the odds.
func POF(equityPct, winPct float64) float64 {
	return roundHalfUp((equityPct - winPct) / equityPct * 100)
}

// roundBets returns the current round's bet list
func (gs *GameState) roundBets() []hand.Bet {
	return gs.RoundBets.Bets(gs.Index.Round)
}

// PreviousBets returns the bets placed before the current turn this round
func (gs *GameState) PreviousBets() []hand.Bet {
	bets := gs.roundBets()
	turn := gs.Index.Turn
	if turn == 0 || len(bets) == 0 || turn > len(bets) {
		return nil
	}
	return bets[:turn:turn]
}

// AfterBets returns the bets placed after the current turn this round
func (gs *GameState) AfterBets() []hand.Bet {
	bets := gs.roundBets()
	from := gs.Index.Turn + 1
	if from >= len(bets) {
		return nil
	}
	return bets[from:]
}

// BigBlind returns the pre-flop big blind amount
func (gs *GameState) BigBlind() (float64, error) {
	pre := gs.RoundBets.PreFlop
	if len(pre) < 2 {
		return 0, inconsistent("Could not find big blind amount. Pre flop round bets must be greater >= 2.")
	}
	if !pre[1].IsBigBlind() {
		return 0, inconsistent("Could not find big blind amount. Second bet is not type of big-blind.")
	}
	if pre[1].Amount <= 0 {
		return 0, inconsistent("Big blind amount must be greater then 0.")
	}
	return pre[1].Amount, nil
}

// CallAmountOnFold reconstructs what the folding actor had to call: the
// latest opposing raise-class amount minus the actor's own latest one.
func (gs *GameState) CallAmountOnFold() (float64, error) {
	if gs.Index.Turn == 0 {
		return gs.BigBlind()
	}
	prev := gs.PreviousBets()
	if len(prev) == 0 {
		return 0, inconsistent("previous round bets are missing for game state: %s", gs.Index)
	}

	var (
		own, opposing   float64
		ownFound, found bool
	)
	for i := len(prev) - 1; i >= 0; i-- {
		b := prev[i]
		if !b.IsAnyBet() {
			continue
		}
		if b.UserID == gs.UserID {
			if !ownFound {
				own, ownFound = b.Amount, true
			}
		} else if !found {
			opposing, found = b.Amount, true
		}
	}
	if !found {
		bb, err := gs.BigBlind()
		if err != nil {
			return 0, err
		}
		opposing = bb
	}

	amount := opposing - own
	if amount <= 0 {
		return 0, inconsistent("Calculated call amount on fold must be positive")
	}
	return amount, nil
}

// HasBestOrTiedHand reports whether the actor's win percentage is at least
// the table maximum
func (gs *GameState) HasBestOrTiedHand() (bool, error) {
	pp, err := gs.Current()
	if err != nil {
		return false, err
	}
	best, err := gs.MaxWin()
	if err != nil {
		return false, err
	}
	return pp.WinPercentage >= best, nil
}

// MaxWin returns the highest win percentage at this turn
func (gs *GameState) MaxWin() (float64, error) {
	m, err := gs.Percentages.At(gs.Index)
	if err != nil {
		return 0, err
	}
	if len(m) == 0 {
		return 0, inconsistent("Game state index player percentage map is missing max win percentage for: %s", gs.Index)
	}
	best := math.Inf(-1)
	for _, p := range m {
		best = max(best, p.WinPercentage)
	}
	return best, nil
}

// FirstWinCrossing finds the first later turn of this round where the actor's
// win percentage is at least threshold.
func (gs *GameState) FirstWinCrossing(threshold float64) (GameStateIndex, bool) {
	var (
		hit   GameStateIndex
		found bool
	)
	for idx, m := range gs.Percentages {
		if idx.Round != gs.Index.Round || idx.Turn <= gs.Index.Turn {
			continue
		}
		p, ok := m[gs.UserID]
		if !ok || p.WinPercentage < threshold {
			continue
		}
		if !found || idx.Turn < hit.Turn {
			hit, found = idx, true
		}
	}
	return hit, found
}

// AllFoldAfterBet reports whether every later bet this round is a fold.
// There must be at least one.
func (gs *GameState) AllFoldAfterBet() (bool, error) {
	if !gs.Bet.IsAnyBet() {
		return false, inconsistent("all fold after bet requires a bet, got: %s", gs.Bet.Type)
	}
	after := gs.AfterBets()
	if len(after) == 0 {
		return false, nil
	}
	for _, b := range after {
		if !b.IsFold() {
			return false, nil
		}
	}
	return true, nil
}

// lastIndexOf points after the round's final action: past it when that
// action is a fold.
func lastIndexOf(round hand.Round, bets []hand.Bet) GameStateIndex {
	last := len(bets) - 1
	if bets[last].IsFold() {
		last++
	}
	return GameStateIndex{Round: round, Turn: last}
}

// OthersFoldByRoundEnd reports whether the actor is the only player left in
// contention once the round ends.
func (gs *GameState) OthersFoldByRoundEnd() (bool, error) {
	if !gs.Bet.IsAnyBet() {
		return false, inconsistent("others fold by round end requires a bet, got: %s", gs.Bet.Type)
	}
	bets := gs.roundBets()
	m, err := gs.Percentages.At(lastIndexOf(gs.Index.Round, bets))
	if err != nil {
		return false, err
	}
	_, ok := m[gs.Bet.UserID]
	return len(m) == 1 && ok, nil
}

// LeadsToWinningHand reports whether the actor is a declared winner or
// finishes the river with a certain win.
func (gs *GameState) LeadsToWinningHand() (bool, error) {
	if gs.IsWinner(gs.UserID) {
		return true, nil
	}
	river := gs.RoundBets.River
	if len(river) == 0 {
		return false, nil
	}
	m, err := gs.Percentages.At(lastIndexOf(hand.River, river))
	if err != nil {
		return false, err
	}
	p, ok := m[gs.UserID]
	return ok && p.WinPercentage >= 100, nil
}

// TopShowdownOpponent is the opponent with the best showdown percentage
func (gs *GameState) TopShowdownOpponent() (string, float64, error) {
	ranked, err := gs.ByShowdownDesc()
	if err != nil {
		return "", 0, err
	}
	for _, p := range ranked {
		if p.UserID != gs.UserID {
			return p.UserID, p.ShowdownPercentage, nil
		}
	}
	return "", 0, inconsistent("Top showdown player percentages are empty on: %s", gs.Index)
}
