package deck

import (
	rand "math/rand/v2"
)

// Deck represents the cards still available for dealing
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// All returns the 52 playable cards ordered by rank then suit
func All() []Card {
	cards := make([]Card, 0, 52)
	for r := Two; r <= Ace; r++ {
		for s := Clubs; s <= Spades; s++ {
			cards = append(cards, table[r-Two][s])
		}
	}
	return cards
}

// NewDeck creates a deck holding every card except the excluded ones
func NewDeck(rng *rand.Rand, exclude ...Card) *Deck {
	var dead [52]bool
	for _, c := range exclude {
		if i := c.Index(); i >= 0 {
			dead[i] = true
		}
	}
	cards := make([]Card, 0, 52)
	for _, c := range All() {
		if !dead[c.Index()] {
			cards = append(cards, c)
		}
	}
	return &Deck{cards: cards, rng: rng}
}

// Cards returns the remaining cards
func (d *Deck) Cards() []Card {
	return d.cards
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Sample moves n random cards to the front of the deck and returns them.
// The deck is not consumed, so repeated samples draw from the same pool.
func (d *Deck) Sample(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	for i := 0; i < n; i++ {
		j := i + d.rng.IntN(len(d.cards)-i)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d.cards[:n]
}

// Pairs returns every unordered two-card combination of the remaining cards
func (d *Deck) Pairs() [][2]Card {
	n := len(d.cards)
	out := make([][2]Card, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, [2]Card{d.cards[i], d.cards[j]})
		}
	}
	return out
}
