package rating

import (
	"math"
)

// Tier scales a hand's rating change for players whose current rating is
// below Below. Gains shrink and losses grow as the rating climbs.
type Tier struct {
	Below    int64
	Positive float64
	Negative float64
}

// DefaultTiers cover the whole rating range in steps of 4000
var DefaultTiers = []Tier{
	{Below: 4000, Positive: 0.8, Negative: 1.2},
	{Below: 8000, Positive: 0.6, Negative: 1.4},
	{Below: 12000, Positive: 0.5, Negative: 1.5},
	{Below: 16000, Positive: 0.4, Negative: 1.6},
	{Below: 20000, Positive: 0.3, Negative: 1.7},
	{Below: 24000, Positive: 0.2, Negative: 2.0},
	{Below: 28000, Positive: 0.15, Negative: 2.0},
	{Below: 32000, Positive: 0.12, Negative: 2.0},
	{Below: math.MaxInt64, Positive: 0.1, Negative: 2.0},
}

// Tiers is an ordered tier list; the last tier is open ended
type Tiers []Tier

// For returns the tier of a current rating
func (ts Tiers) For(rating int64) (Tier, bool) {
	if len(ts) == 0 {
		return Tier{}, false
	}
	for _, t := range ts {
		if rating < t.Below {
			return t, true
		}
	}
	return ts[len(ts)-1], true
}

// Penalize scales change by the tier multiplier, rounding half up
func (t Tier) Penalize(change int64) int64 {
	switch {
	case change < 0:
		return int64(math.Floor(float64(change)*t.Negative + 0.5))
	case change > 0:
		return int64(math.Floor(float64(change)*t.Positive + 0.5))
	}
	return 0
}
