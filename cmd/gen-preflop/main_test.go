package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerrating/internal/deck"
	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/randutil"
)

func TestScoreOrdersHands(t *testing.T) {
	board := deck.MustParse("2c", "7d", "9h", "Js", "3h")
	aces := score(deck.Parse("As"), deck.Parse("Ad"), board)
	jacks := score(deck.Parse("Jc"), deck.Parse("Jd"), board)
	junk := score(deck.Parse("4c"), deck.Parse("5d"), board)

	assert.Greater(t, jacks, aces)
	assert.Greater(t, aces, junk)
	assert.Equal(t, score(deck.Parse("Kc"), deck.Parse("Qd"), board), score(deck.Parse("Kh"), deck.Parse("Qs"), board))
}

func TestShowdownSeparatesStrongAndWeakHands(t *testing.T) {
	aces := deck.HandClass(deck.Parse("As"), deck.Parse("Ah"))
	trash := deck.HandClass(deck.Parse("7s"), deck.Parse("2h"))

	strong := showdown(aces, 20, randutil.New(1))
	weak := showdown(trash, 20, randutil.New(1))

	assert.Greater(t, strong, 90.0)
	assert.Less(t, weak, 20.0)
	assert.Equal(t, strong, showdown(aces, 20, randutil.New(1)))
}

func TestRenderLoadsAsPreflopTable(t *testing.T) {
	values := make(map[deck.StartingHand]float64)
	for i, class := range deck.StartingHands() {
		values[class] = float64(i) / 2
	}
	data := render(values)
	assert.Equal(t, equity.PreflopCombos, strings.Count(data, "\n"))
	assert.True(t, strings.HasPrefix(data, "2d 2c "))

	table, err := equity.ParsePreflopTable(data)
	require.NoError(t, err)
	pct, err := table.Showdown(deck.MustParse("Ah", "As"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct) // AA is the first class
}
