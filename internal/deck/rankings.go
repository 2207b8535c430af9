package deck

// StartingHand is one of the 169 preflop hand classes (e.g. "AKs", "72o", "TT")
type StartingHand struct {
	High   Rank
	Low    Rank
	Suited bool
}

// HandClass converts hole cards to their starting-hand class
func HandClass(c1, c2 Card) StartingHand {
	high, low := c1.Rank, c2.Rank
	if low > high {
		high, low = low, high
	}
	return StartingHand{High: high, Low: low, Suited: high != low && c1.Suit == c2.Suit}
}

// String returns the class key, e.g. "AKs", "72o" or "TT"
func (h StartingHand) String() string {
	if h.High == h.Low {
		return h.High.String() + h.Low.String()
	}
	if h.Suited {
		return h.High.String() + h.Low.String() + "s"
	}
	return h.High.String() + h.Low.String() + "o"
}

// Representative returns one concrete combination of the class:
// suited hands use spades, offsuit hands and pairs use spades and clubs.
func (h StartingHand) Representative() (Card, Card) {
	if h.Suited {
		return Of(h.High, Spades), Of(h.Low, Spades)
	}
	return Of(h.High, Spades), Of(h.Low, Clubs)
}

// StartingHands returns all 169 classes, strongest ranks first
func StartingHands() []StartingHand {
	out := make([]StartingHand, 0, 169)
	for high := Ace; high >= Two; high-- {
		for low := high; low >= Two; low-- {
			if high != low {
				out = append(out, StartingHand{High: high, Low: low, Suited: true})
			}
			out = append(out, StartingHand{High: high, Low: low})
		}
	}
	return out
}
