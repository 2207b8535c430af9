package rules

import (
	"fmt"

	"github.com/lox/pokerrating/internal/hand"
)

type category interface {
	comparable
	fmt.Stringer
}

type roundKey[C category] struct {
	round hand.Round
	cat   C
}

type showdownKey[C category] struct {
	cat      C
	showdown ShowdownType
}

type positionKey[C category] struct {
	cat      C
	position BetPosition
}

type sizeKey[C category] struct {
	cat  C
	size BetSizeCategory
}

// pointTable holds the primary points of one action family and its sparse
// modifier tables. Only the primary lookup is required to hit.
type pointTable[C category] struct {
	rounds        map[roundKey[C]]int64
	yourCards     map[showdownKey[C]]int64
	opponentCards map[showdownKey[C]]int64
	position      map[positionKey[C]]int64
	betSize       map[sizeKey[C]]int64
}

func (t *pointTable[C]) points(r hand.Round, c C) (int64, error) {
	v, ok := t.rounds[roundKey[C]{r, c}]
	if !ok {
		return 0, inconsistent("Points missing for: %s, %s", r, c)
	}
	return v, nil
}

// showdownPoints is keyed by the actor's showdown bucket
type showdownPoints map[ShowdownType]int64

func (p showdownPoints) require(st ShowdownType, what string) (int64, error) {
	v, ok := p[st]
	if !ok {
		return 0, inconsistent("%s points missing for showdown: %s", what, st)
	}
	return v, nil
}

type crackedTable struct {
	rounds    map[hand.Round]int64
	yourCards showdownPoints
	position  map[BetPosition]int64
}

func (t *crackedTable) points(r hand.Round) (int64, error) {
	v, ok := t.rounds[r]
	if !ok {
		return 0, inconsistent("Points missing for: %s", r)
	}
	return v, nil
}

type riverTable struct {
	foldOnWinningHand       showdownPoints
	successfulBluff         showdownPoints
	failedBluff             showdownPoints
	callOnNonBestHand       showdownPoints
	foldOnNonBestHand       showdownPoints
	failedTrap              showdownPoints
	winningHandNoReRaise    showdownPoints
	winningHandOnLastCheck  showdownPoints
	winningHandYouBet       showdownPoints
	opponentBetsRaiseForMax showdownPoints
	youBetRaiseForMax       showdownPoints
}

// Points is the full set of static point tables used by the rules
type Points struct {
	bet     pointTable[BetCategory]
	call    pointTable[CallCategory]
	fold    pointTable[FoldCategory]
	cracked crackedTable
	river   riverTable
}

var ratedRounds = [...]hand.Round{hand.PreFlop, hand.Flop, hand.Turn}

// perRound expands pre-flop, flop and turn values per category
func perRound[C category](rows map[C][3]int64) map[roundKey[C]]int64 {
	out := make(map[roundKey[C]]int64, len(rows)*len(ratedRounds))
	for c, pts := range rows {
		for i, r := range ratedRounds {
			out[roundKey[C]{r, c}] = pts[i]
		}
	}
	return out
}

// byShowdown expands values ordered Horrible..Amazing
func byShowdown(pts [7]int64) showdownPoints {
	out := make(showdownPoints, len(pts))
	for i, st := range ShowdownTypes {
		out[st] = pts[i]
	}
	return out
}

// perShowdown expands one Horrible..Amazing row for several categories
func perShowdown[C category](pts [7]int64, cats ...C) map[showdownKey[C]]int64 {
	out := make(map[showdownKey[C]]int64, len(cats)*len(pts))
	for _, c := range cats {
		for i, st := range ShowdownTypes {
			out[showdownKey[C]{c, st}] = pts[i]
		}
	}
	return out
}

func merge[K comparable](tables ...map[K]int64) map[K]int64 {
	out := make(map[K]int64)
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

// DefaultPoints returns the production point tables
func DefaultPoints() *Points {
	return &Points{
		bet: pointTable[BetCategory]{
			rounds: perRound(map[BetCategory][3]int64{
				GoodBet:         {10, 20, 30},
				BadBet:          {-10, -10, -20},
				TerribleBet:     {-10, -20, -30},
				HorribleBet:     {-30, -40, -50},
				NonPenalizedBet: {0, 0, 0},
				SuccessfulBluff: {40, 50, 60},
				BadBluff:        {-20, -30, -40},
				TerribleBluff:   {-20, -30, -30},
				HorribleBluff:   {-30, -40, -40},
			}),
			yourCards: merge(
				perShowdown([7]int64{40, 35, 32, 30, 30, 20, 10}, GoodBet),
				perShowdown([7]int64{-20, -15, -12, -10, -10, -10, -10}, BadBet, TerribleBet, HorribleBet),
				perShowdown([7]int64{-35, -30, -25, -20, -17, -15, -10}, BadBluff, TerribleBluff, HorribleBluff),
			),
			opponentCards: map[showdownKey[BetCategory]]int64{},
			position:      map[positionKey[BetCategory]]int64{},
			betSize: map[sizeKey[BetCategory]]int64{
				{BadBet, MoreThanPot}:      -10,
				{TerribleBet, MoreThanPot}: -10,
				{HorribleBet, MoreThanPot}: -10,
			},
		},
		call: pointTable[CallCategory]{
			rounds: perRound(map[CallCategory][3]int64{
				GoodCall:         {30, 40, 40},
				NonPenalizedCall: {0, 0, 0},
				BadCall:          {-10, -20, -30},
				TerribleCall:     {-10, -30, -40},
				HorribleCall:     {-30, -40, -50},
			}),
			yourCards: merge(
				perShowdown([7]int64{42, 35, 30, 30, 30, 20, 15}, GoodCall),
				perShowdown([7]int64{-25, -20, -15, -12, -10, -8, -5}, BadCall, TerribleCall, HorribleCall),
			),
			opponentCards: map[showdownKey[CallCategory]]int64{
				{GoodCall, OkHand}:      10,
				{GoodCall, GoodHand}:    20,
				{GoodCall, GreatHand}:   20,
				{GoodCall, AmazingHand}: 30,
			},
			position: map[positionKey[CallCategory]]int64{
				{GoodCall, FirstToAct}:     20,
				{GoodCall, Neither}:        10,
				{BadCall, FirstToAct}:      -20,
				{BadCall, Neither}:         -10,
				{TerribleCall, FirstToAct}: -20,
				{TerribleCall, Neither}:    -10,
				{HorribleCall, FirstToAct}: -20,
				{HorribleCall, Neither}:    -10,
			},
			betSize: map[sizeKey[CallCategory]]int64{
				{GoodCall, HalfPotToPot}:    10,
				{GoodCall, MoreThanPot}:     20,
				{BadCall, MoreThanPot}:      -10,
				{TerribleCall, MoreThanPot}: -10,
				{HorribleCall, MoreThanPot}: -10,
			},
		},
		fold: pointTable[FoldCategory]{
			rounds: perRound(map[FoldCategory][3]int64{
				NonPenalizedFold: {0, 0, 0},
				CorrectFold:      {10, 20, 30},
				IncorrectFold:    {-10, -20, -30},
			}),
			yourCards: merge(
				perShowdown([7]int64{5, 5, 10, 20, 25, 30, 45}, CorrectFold),
				perShowdown([7]int64{0, -10, -15, -20, -25, -30, -40}, IncorrectFold),
			),
			opponentCards: map[showdownKey[FoldCategory]]int64{},
			position: map[positionKey[FoldCategory]]int64{
				{IncorrectFold, LastToAct}: -10,
			},
			betSize: map[sizeKey[FoldCategory]]int64{
				{CorrectFold, LessThanHalfPot}:   30,
				{CorrectFold, HalfPotToPot}:      20,
				{CorrectFold, MoreThanPot}:       10,
				{IncorrectFold, LessThanHalfPot}: -20,
				{IncorrectFold, HalfPotToPot}:    -10,
			},
		},
		cracked: crackedTable{
			rounds: map[hand.Round]int64{
				hand.PreFlop: -20,
				hand.Flop:    -30,
				hand.Turn:    -40,
			},
			yourCards: showdownPoints{
				GoodHand:    -10,
				GreatHand:   -20,
				AmazingHand: -30,
			},
			position: map[BetPosition]int64{
				LastToAct: -10,
			},
		},
		river: riverTable{
			foldOnWinningHand:       byShowdown([7]int64{-10, -15, -20, -30, -40, -50, -60}),
			successfulBluff:         byShowdown([7]int64{60, 55, 50, 50, 45, 40, 30}),
			failedBluff:             byShowdown([7]int64{-60, -55, -50, -45, -40, -35, -30}),
			callOnNonBestHand:       byShowdown([7]int64{-65, -60, -55, -45, -40, -35, -25}),
			foldOnNonBestHand:       byShowdown([7]int64{10, 15, 20, 30, 40, 50, 60}),
			failedTrap:              byShowdown([7]int64{0, 0, -5, -10, -15, -20, -22}),
			winningHandNoReRaise:    byShowdown([7]int64{0, 0, 0, 0, 0, -10, -15}),
			winningHandOnLastCheck:  byShowdown([7]int64{0, 0, -5, -10, -15, -20, -30}),
			winningHandYouBet:       byShowdown([7]int64{50, 45, 40, 35, 35, 30, 25}),
			opponentBetsRaiseForMax: byShowdown([7]int64{60, 55, 50, 45, 40, 40, 30}),
			youBetRaiseForMax:       byShowdown([7]int64{50, 40, 38, 35, 30, 30, 20}),
		},
	}
}
