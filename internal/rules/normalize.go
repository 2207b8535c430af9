package rules

import (
	"fmt"
	"math"

	"github.com/lox/pokerrating/internal/hand"
)

const (
	normalizeRuleName = "Normalize Pre-Flop"
	normalizeDecision = "Normalize Pre-Flop gain/lost points"
)

// preflopTurn counts the actor's voluntary pre-flop actions
type preflopTurn int

const (
	firstTurn preflopTurn = iota + 1
	secondTurn
	laterTurn
)

func (t preflopTurn) String() string {
	switch t {
	case firstTurn:
		return "FIRST"
	case secondTurn:
		return "SECOND"
	default:
		return "THIRD_N"
	}
}

// coefficient is the share of the raw pre-flop sum that is kept
func (t preflopTurn) coefficient() float64 {
	switch t {
	case firstTurn:
		return 0.1
	case secondTurn:
		return 0.2
	default:
		return 0.3
	}
}

func preflopTurnOf(prev []hand.Bet, userID string) preflopTurn {
	n := 1
	for _, b := range prev {
		if b.UserID == userID && !b.IsAnyBlind() {
			n++
		}
	}
	return preflopTurn(min(n, int(laterTurn)))
}

// normalize scales a pre-flop turn's points to 10, 20 or 30 percent by
// appending one compensating decision. Other rounds are left alone.
func normalize(gs *GameState, decisions []Decision) (*Decision, error) {
	if gs.Index.Round != hand.PreFlop || len(decisions) == 0 {
		return nil, nil
	}
	turn := preflopTurnOf(gs.PreviousBets(), gs.UserID)

	var sum int64
	for _, d := range decisions {
		sum += d.RatingChange
	}
	c := turn.coefficient()
	kept := int64(math.Floor(float64(sum)*c + 0.5))

	pp, err := gs.Current()
	if err != nil {
		return nil, err
	}
	d, err := gs.decision(normalizeRuleName, normalizeDecision, -(sum - kept), pp, metrics{},
		fmt.Sprintf("Normalize Pre-Flop total rule decisions '%d' to '%.1f' coefficient on '%s' decision", sum, c, turn))
	if err != nil {
		return nil, err
	}
	return &d, nil
}
