package rules

import (
	"github.com/lox/pokerrating/internal/equity"
)

// extras appends the modifier decisions of a classified action: the actor's
// cards, the strongest opponent's cards, position and bet size. A modifier
// without a table entry is skipped.
func extras[C category](t *pointTable[C], rule string, gs *GameState, cat C, pp equity.PlayerPercentage, m metrics) ([]Decision, error) {
	var out []Decision
	add := func(name string, points int64) error {
		d, err := gs.decision(rule, name, points, pp, m)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	}

	yours := ShowdownTypeOf(pp.ShowdownPercentage)
	if v, ok := t.yourCards[showdownKey[C]{cat, yours}]; ok {
		if err := add(cat.String()+" and your cards are "+yours.String(), v); err != nil {
			return nil, err
		}
	}

	_, opponentShowdown, err := gs.TopShowdownOpponent()
	if err != nil {
		return nil, err
	}
	theirs := ShowdownTypeOf(opponentShowdown)
	if v, ok := t.opponentCards[showdownKey[C]{cat, theirs}]; ok {
		if err := add(cat.String()+" and opponent cards are "+theirs.String(), v); err != nil {
			return nil, err
		}
	}

	if v, ok := t.position[positionKey[C]{cat, gs.Position}]; ok {
		if err := add(cat.String()+" and position is "+gs.Position.String(), v); err != nil {
			return nil, err
		}
	}

	size := BetSizeOf(gs.Bet)
	if v, ok := t.betSize[sizeKey[C]{cat, size}]; ok {
		if err := add(cat.String()+" and bet size is "+size.String(), v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// crackedExtras weighs the size of the lead that was given away
func (p *Points) crackedExtras(rule string, gs *GameState, pp equity.PlayerPercentage) ([]Decision, error) {
	var out []Decision
	st := ShowdownTypeOf(pp.ShowdownPercentage)
	if v, ok := p.cracked.yourCards[st]; ok {
		d, err := gs.decision(rule, "Cracked and your cards are "+st.String(), v, pp, metrics{})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if v, ok := p.cracked.position[gs.Position]; ok {
		d, err := gs.decision(rule, "Cracked and position is "+gs.Position.String(), v, pp, metrics{})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
