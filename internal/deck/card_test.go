package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rank  Rank
		suit  Suit
		valid bool
	}{
		{name: "ace of hearts", input: "Ah", rank: Ace, suit: Hearts, valid: true},
		{name: "ten of clubs", input: "Tc", rank: Ten, suit: Clubs, valid: true},
		{name: "deuce of spades", input: "2s", rank: Two, suit: Spades, valid: true},
		{name: "lower case rank", input: "ah"},
		{name: "invalid suit", input: "Ax"},
		{name: "single char", input: "A"},
		{name: "empty", input: ""},
		{name: "ten as digits", input: "10h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Parse(tt.input)
			assert.Equal(t, tt.valid, c.IsValid())
			if tt.valid {
				assert.Equal(t, tt.rank, c.Rank)
				assert.Equal(t, tt.suit, c.Suit)
				assert.Equal(t, tt.input, c.String())
			}
		})
	}
}

func TestInvalidCardKeepsRawText(t *testing.T) {
	c := Parse("Zz")
	assert.False(t, c.IsValid())
	assert.Equal(t, "Zz", c.String())
	assert.Equal(t, -1, c.Index())
	assert.NotEqual(t, Parse("Zz"), Parse("Xx"))
}

func TestCardsAreInterned(t *testing.T) {
	assert.Equal(t, Parse("Kd"), Of(King, Diamonds))
	assert.Equal(t, Of(King, Diamonds), MustParse("Kd")[0])

	seen := make(map[int]bool)
	for _, c := range All() {
		require.True(t, c.IsValid())
		seen[c.Index()] = true
	}
	assert.Len(t, seen, 52)
}

func TestCardJSON(t *testing.T) {
	var cards []Card
	require.NoError(t, json.Unmarshal([]byte(`["Ah","Kd","bogus",null]`), &cards))
	require.Len(t, cards, 4)
	assert.True(t, cards[0].IsValid())
	assert.True(t, cards[1].IsValid())
	assert.False(t, cards[2].IsValid())
	assert.False(t, cards[3].IsValid())

	out, err := json.Marshal(cards[:2])
	require.NoError(t, err)
	assert.JSONEq(t, `["Ah","Kd"]`, string(out))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "Ah|Kd", Join(MustParse("Ah", "Kd"), "|"))
	assert.Equal(t, "", Join(nil, "|"))
}

func TestMustParsePanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustParse("As", "nope") })
}

func TestStartingHands(t *testing.T) {
	hands := StartingHands()
	assert.Len(t, hands, 169)

	assert.Equal(t, "AKs", HandClass(Parse("Kh"), Parse("Ah")).String())
	assert.Equal(t, "72o", HandClass(Parse("7c"), Parse("2d")).String())
	assert.Equal(t, "TT", HandClass(Parse("Tc"), Parse("Td")).String())

	c1, c2 := StartingHand{High: Queen, Low: Jack, Suited: true}.Representative()
	assert.Equal(t, "QJs", HandClass(c1, c2).String())
}

func TestDeck(t *testing.T) {
	d := NewDeck(nil, MustParse("As", "Ks")...)
	assert.Equal(t, 50, d.CardsRemaining())
	assert.Len(t, d.Pairs(), 50*49/2)
	for _, c := range d.Cards() {
		assert.NotEqual(t, "As", c.String())
		assert.NotEqual(t, "Ks", c.String())
	}
}
