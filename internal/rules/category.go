package rules

import "github.com/lox/pokerrating/internal/hand"

// ShowdownType buckets a showdown percentage into a hand quality
type ShowdownType uint8

const (
	HorribleHand ShowdownType = iota
	TerribleHand
	BadHand
	OkHand
	GoodHand
	GreatHand
	AmazingHand
)

var showdownTypeNames = [...]string{
	HorribleHand: "Horrible Hand",
	TerribleHand: "Terrible Hand",
	BadHand:      "Bad Hand",
	OkHand:       "Ok Hand",
	GoodHand:     "Good Hand",
	GreatHand:    "Great Hand",
	AmazingHand:  "Amazing Hand",
}

// ShowdownTypes lists every bucket from worst to best
var ShowdownTypes = [...]ShowdownType{HorribleHand, TerribleHand, BadHand, OkHand, GoodHand, GreatHand, AmazingHand}

// lower bounds, inclusive
var showdownBounds = [...]float64{
	TerribleHand: 5,
	BadHand:      15,
	OkHand:       30,
	GoodHand:     50,
	GreatHand:    70,
	AmazingHand:  95,
}

// ShowdownTypeOf maps a showdown percentage to its bucket
func ShowdownTypeOf(pct float64) ShowdownType {
	t := HorribleHand
	for _, st := range ShowdownTypes[1:] {
		if pct >= showdownBounds[st] {
			t = st
		}
	}
	return t
}

func (t ShowdownType) String() string {
	if int(t) < len(showdownTypeNames) {
		return showdownTypeNames[t]
	}
	return "unknown"
}

func (t ShowdownType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// BetPosition is where the actor sits in the round's bet order
type BetPosition uint8

const (
	FirstToAct BetPosition = iota
	Neither
	LastToAct
)

var betPositionTitles = [...]string{
	FirstToAct: "First to act",
	Neither:    "Neither",
	LastToAct:  "Last to act",
}

// PositionOf derives the position from a turn index and the round size
func PositionOf(turn, roundSize int) BetPosition {
	switch {
	case turn == 0:
		return FirstToAct
	case turn == roundSize-1:
		return LastToAct
	default:
		return Neither
	}
}

func (p BetPosition) String() string {
	if int(p) < len(betPositionTitles) {
		return betPositionTitles[p]
	}
	return "unknown"
}

// BetSizeCategory buckets a bet amount against the pot
type BetSizeCategory uint8

const (
	LessThanHalfPot BetSizeCategory = iota
	HalfPotToPot
	MoreThanPot
)

var betSizeTitles = [...]string{
	LessThanHalfPot: "Less than half pot",
	HalfPotToPot:    "Between half pot and pot exclusive",
	MoreThanPot:     "More then pot",
}

// BetSizeOf classifies the bet amount relative to the pot at that moment
func BetSizeOf(b hand.Bet) BetSizeCategory {
	switch {
	case b.Amount < b.Pot/2:
		return LessThanHalfPot
	case b.Amount < b.Pot:
		return HalfPotToPot
	default:
		return MoreThanPot
	}
}

func (c BetSizeCategory) String() string {
	if int(c) < len(betSizeTitles) {
		return betSizeTitles[c]
	}
	return "unknown"
}

// BetCategory classifies raise-class actions
type BetCategory uint8

const (
	GoodBet BetCategory = iota
	BadBet
	TerribleBet
	HorribleBet
	NonPenalizedBet
	SuccessfulBluff
	BadBluff
	TerribleBluff
	HorribleBluff
)

var betCategoryNames = [...]string{
	GoodBet:         "Good Bet",
	BadBet:          "Bad Bet",
	TerribleBet:     "Terrible Bet",
	HorribleBet:     "Horrible Bet",
	NonPenalizedBet: "Non Penalized Bet",
	SuccessfulBluff: "Successful bluff",
	BadBluff:        "Bad Bluff",
	TerribleBluff:   "Terrible Bluff",
	HorribleBluff:   "Horrible Bluff",
}

func (c BetCategory) String() string {
	if int(c) < len(betCategoryNames) {
		return betCategoryNames[c]
	}
	return "unknown"
}

// IsFailedBluff reports the bluff categories that lost value
func (c BetCategory) IsFailedBluff() bool {
	return c == BadBluff || c == TerribleBluff || c == HorribleBluff
}

// CallCategory classifies calls
type CallCategory uint8

const (
	GoodCall CallCategory = iota
	NonPenalizedCall
	BadCall
	TerribleCall
	HorribleCall
)

var callCategoryNames = [...]string{
	GoodCall:         "Good Call",
	NonPenalizedCall: "Non Penalized Call",
	BadCall:          "Bad Call",
	TerribleCall:     "Terrible Call",
	HorribleCall:     "Horrible Call",
}

func (c CallCategory) String() string {
	if int(c) < len(callCategoryNames) {
		return callCategoryNames[c]
	}
	return "unknown"
}

// FoldCategory classifies folds
type FoldCategory uint8

const (
	CorrectFold FoldCategory = iota
	IncorrectFold
	NonPenalizedFold
)

var foldCategoryNames = [...]string{
	CorrectFold:      "Correct Fold",
	IncorrectFold:    "Incorrect Fold",
	NonPenalizedFold: "Non Penalized Fold",
}

func (c FoldCategory) String() string {
	if int(c) < len(foldCategoryNames) {
		return foldCategoryNames[c]
	}
	return "unknown"
}
