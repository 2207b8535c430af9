package deck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const suitChars = "cdhs"

// String returns the single letter notation of a suit ("c", "d", "h", "s")
func (s Suit) String() string {
	if s > Spades {
		return "?"
	}
	return suitChars[s : s+1]
}

// Symbol returns the unicode symbol of a suit, used for terminal rendering
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank uint8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankChars = "23456789TJQKA"

// String returns the single character notation of a rank
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	i := r - Two
	return rankChars[i : i+1]
}

// Card is a playing card. Valid cards are interned in a fixed table indexed
// by (rank, suit); an unparsable card keeps its raw text and reports
// IsValid() == false.
type Card struct {
	Rank Rank
	Suit Suit
	raw  string
}

var table = func() (t [13][4]Card) {
	for r := Two; r <= Ace; r++ {
		for s := Clubs; s <= Spades; s++ {
			t[r-Two][s] = Card{Rank: r, Suit: s}
		}
	}
	return t
}()

// Of returns the interned card for the given rank and suit.
func Of(rank Rank, suit Suit) Card {
	if rank < Two || rank > Ace || suit > Spades {
		return Invalid(fmt.Sprintf("%s%s", rank, suit))
	}
	return table[rank-Two][suit]
}

// Invalid returns the invalid card variant for an unparsable value.
func Invalid(raw string) Card {
	if raw == "" {
		raw = "null"
	}
	return Card{raw: raw}
}

// Parse reads a card in "Ah" notation. The first character is the rank
// (23456789TJQKA) and the second the suit (cdhs). Anything else yields the
// Invalid variant, never an error.
func Parse(value string) Card {
	if len(value) < 2 {
		return Invalid(value)
	}
	ri := strings.IndexByte(rankChars, value[0])
	si := strings.IndexByte(suitChars, value[1])
	if ri < 0 || si < 0 {
		return Invalid(value)
	}
	return table[ri][si]
}

// MustParse parses a list of cards and panics if any of them is invalid.
// Intended for tests and static fixtures.
func MustParse(values ...string) []Card {
	out := make([]Card, len(values))
	for i, v := range values {
		c := Parse(v)
		if !c.IsValid() {
			panic("deck: invalid card " + v)
		}
		out[i] = c
	}
	return out
}

// IsValid reports whether the card is one of the 52 playable cards.
func (c Card) IsValid() bool {
	return c.raw == "" && c.Rank >= Two && c.Rank <= Ace
}

// Index returns the 0..51 position of a valid card, -1 otherwise.
func (c Card) Index() int {
	if !c.IsValid() {
		return -1
	}
	return int(c.Rank-Two)*4 + int(c.Suit)
}

// String returns the card in "Ah" notation, or the raw text for an invalid card
func (c Card) String() string {
	if !c.IsValid() {
		return c.raw
	}
	return c.Rank.String() + c.Suit.String()
}

// Pretty returns the card with a suit symbol (e.g. "A♠")
func (c Card) Pretty() string {
	if !c.IsValid() {
		return c.raw
	}
	return c.Rank.String() + c.Suit.Symbol()
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Card) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Invalid("null")
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("card must be a string: %w", err)
	}
	*c = Parse(s)
	return nil
}

// Join renders cards the way the equity oracle expects hole cards, e.g. "Ah|Kd".
func Join(cards []Card, sep string) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, sep)
}
