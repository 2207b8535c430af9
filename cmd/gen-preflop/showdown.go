package main

import (
	rand "math/rand/v2"

	"github.com/paulhankin/poker"

	"github.com/lox/pokerrating/internal/deck"
)

// evalCards maps deck indexes onto evaluator cards
var evalCards = func() (t [52]poker.Card) {
	suits := [...]poker.Suit{
		deck.Clubs:    poker.Club,
		deck.Diamonds: poker.Diamond,
		deck.Hearts:   poker.Heart,
		deck.Spades:   poker.Spade,
	}
	for _, c := range deck.All() {
		rank := poker.Rank(c.Rank)
		if c.Rank == deck.Ace {
			rank = 1
		}
		pc, err := poker.MakeCard(suits[c.Suit], rank)
		if err != nil {
			panic(err)
		}
		t[c.Index()] = pc
	}
	return t
}()

// score evaluates hole cards plus a five card board; higher is better
func score(c1, c2 deck.Card, board []deck.Card) int16 {
	var seven [7]poker.Card
	seven[0] = evalCards[c1.Index()]
	seven[1] = evalCards[c2.Index()]
	for i, c := range board {
		seven[i+2] = evalCards[c.Index()]
	}
	return poker.Eval7(&seven)
}

// showdown returns the percentage of opponent holdings the class beats in
// more than half of the sampled boards
func showdown(class deck.StartingHand, boards int, rng *rand.Rand) float64 {
	h1, h2 := class.Representative()
	opponents := deck.NewDeck(rng, h1, h2).Pairs()

	beaten := 0
	for _, opp := range opponents {
		d := deck.NewDeck(rng, h1, h2, opp[0], opp[1])
		var won float64
		for range boards {
			board := d.Sample(5)
			hero, villain := score(h1, h2, board), score(opp[0], opp[1], board)
			switch {
			case hero > villain:
				won++
			case hero == villain:
				won += 0.5
			}
		}
		if won/float64(boards) > 0.5 {
			beaten++
		}
	}
	return 100 * float64(beaten) / float64(len(opponents))
}
