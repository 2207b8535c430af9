package rules

import (
	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/hand"
)

// Decision is one point-bearing verdict on an action
type Decision struct {
	Name              string                    `json:"name"`
	RuleName          string                    `json:"ruleName"`
	Bet               hand.Bet                  `json:"bet"`
	RatingChange      int64                     `json:"ratingChange"`
	Win               float64                   `json:"win"`
	Showdown          float64                   `json:"showdown"`
	Equity            *float64                  `json:"equity,omitempty"`
	POF               *float64                  `json:"pof,omitempty"`
	Messages          []string                  `json:"messages,omitempty"`
	PlayerPercentages []equity.PlayerPercentage `json:"playerPercentages"`
	Index             GameStateIndex            `json:"gameStateIndex"`
}

// UserID is the actor the decision rates
func (d Decision) UserID() string { return d.Bet.UserID }

// metrics carries the optional equity and POF attached to a decision
type metrics struct {
	equity *float64
	pof    *float64
}

func withMetrics(eq, pof float64) metrics {
	return metrics{equity: &eq, pof: &pof}
}

func (gs *GameState) decision(rule, name string, points int64, pp equity.PlayerPercentage, m metrics, messages ...string) (Decision, error) {
	ranked, err := gs.ByWinDesc()
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Name:              name,
		RuleName:          rule,
		Bet:               gs.Bet,
		RatingChange:      points,
		Win:               pp.WinPercentage,
		Showdown:          pp.ShowdownPercentage,
		Equity:            m.equity,
		POF:               m.pof,
		Messages:          messages,
		PlayerPercentages: ranked,
		Index:             gs.Index,
	}, nil
}

// Sum adds up the rating change of every decision per actor
func Sum(decisions []Decision) map[string]int64 {
	out := make(map[string]int64)
	for _, d := range decisions {
		out[d.UserID()] += d.RatingChange
	}
	return out
}
