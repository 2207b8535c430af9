package equity

import (
	"bufio"
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/lox/pokerrating/internal/deck"
)

// PreflopCombos is the number of distinct two-card starting hands
const PreflopCombos = 1326

//go:embed preflop_showdown.txt
var preflopData string

type pairKey [2]int

func keyOf(a, b deck.Card) pairKey {
	i, j := a.Index(), b.Index()
	if i > j {
		i, j = j, i
	}
	return pairKey{i, j}
}

// PreflopTable holds showdown percentages for every starting hand before
// any board card is dealt.
type PreflopTable struct {
	values map[pairKey]float64
}

var (
	defaultPreflop     *PreflopTable
	defaultPreflopErr  error
	defaultPreflopOnce sync.Once
)

// DefaultPreflopTable returns the table parsed from the embedded data file
func DefaultPreflopTable() (*PreflopTable, error) {
	defaultPreflopOnce.Do(func() {
		defaultPreflop, defaultPreflopErr = ParsePreflopTable(preflopData)
	})
	return defaultPreflop, defaultPreflopErr
}

// ParsePreflopTable reads lines of "Ah Kd 93.55". Percentages are rounded
// half-up to whole numbers. Exactly PreflopCombos distinct pairs are required.
func ParsePreflopTable(data string) (*PreflopTable, error) {
	t := &PreflopTable{values: make(map[pairKey]float64, PreflopCombos)}
	sc := bufio.NewScanner(strings.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, " ")
		if len(parts) != 3 {
			return nil, fmt.Errorf("preflop line %d: want 3 fields, got %d", line, len(parts))
		}
		c1, c2 := deck.Parse(parts[0]), deck.Parse(parts[1])
		if !c1.IsValid() || !c2.IsValid() || c1 == c2 {
			return nil, fmt.Errorf("preflop line %d: invalid cards %q %q", line, parts[0], parts[1])
		}
		pct, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("preflop line %d: %w", line, err)
		}
		t.values[keyOf(c1, c2)] = math.Floor(pct + 0.5)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t.values) != PreflopCombos {
		return nil, fmt.Errorf("wrong pre flop percentages data: %d entries", len(t.values))
	}
	return t, nil
}

// Showdown returns the showdown percentage of the hole cards
func (t *PreflopTable) Showdown(cards []deck.Card) (float64, error) {
	if len(cards) != 2 {
		return 0, fmt.Errorf("invalid size of player cards: %d", len(cards))
	}
	v, ok := t.values[keyOf(cards[0], cards[1])]
	if !ok {
		return 0, fmt.Errorf("pre flop percentage is missing for: %s", HoleCards(cards))
	}
	return v, nil
}
