package hand

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/pokerrating/internal/deck"
)

// ErrInvalidHand is matched by every ValidationError
var ErrInvalidHand = errors.New("invalid game hand")

const (
	minPlayers = 2
	maxPlayers = 10
	maxBoard   = 5
)

// Violation is a single rejected field of a GameHand
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found by Validate
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Field + ": " + v.Message
	}
	return "invalid game hand: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidHand
}

type validator struct {
	violations []Violation
}

func (v *validator) add(field, format string, args ...any) {
	v.violations = append(v.violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) ok() bool {
	return len(v.violations) == 0
}

// Validate checks the structural rules a hand must satisfy before rating.
// Field checks run first and are all reported; the semantic checks (board,
// players, round bets) stop at the first failing group.
func (h *GameHand) Validate() error {
	v := &validator{}
	h.validateFields(v)
	if v.ok() {
		_ = h.validateBoard(v) && h.validatePlayers(v) && h.validateRoundBets(v)
	}
	if v.ok() {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}

func (h *GameHand) validateFields(v *validator) {
	if strings.TrimSpace(h.ApplicationID) == "" {
		v.add("applicationId", "must not be blank")
	}
	if strings.TrimSpace(h.SessionID) == "" {
		v.add("sessionId", "must not be blank")
	}
	if n := len(h.Players); n < minPlayers || n > maxPlayers {
		v.add("players", "size must be between %d and %d", minPlayers, maxPlayers)
	}
	for i, p := range h.Players {
		if strings.TrimSpace(p.UserID) == "" {
			v.add(fmt.Sprintf("players[%d].userId", i), "must not be blank")
		}
		if len(p.Cards) != 2 {
			v.add(fmt.Sprintf("players[%d].cards", i), "size must be between 2 and 2")
		}
	}
	if len(h.BoardCards) > maxBoard {
		v.add("boardCards", "size must be between 0 and %d", maxBoard)
	}
	for _, r := range Rounds {
		for i, b := range h.RoundBets.Bets(r) {
			if strings.TrimSpace(b.UserID) == "" {
				v.add(fmt.Sprintf("roundBets.%s[%d].userId", r, i), "must not be blank")
			}
			if b.Amount < 0 {
				v.add(fmt.Sprintf("roundBets.%s[%d].amount", r, i), "must be greater than or equal to 0")
			}
		}
	}
}

func (h *GameHand) validateBoard(v *validator) bool {
	valid := true
	for i, c := range h.BoardCards {
		if !c.IsValid() {
			v.add(fmt.Sprintf("boardCards[%d]", i), "Invalid card: %s", c)
			valid = false
		}
	}
	if !valid {
		return false
	}

	seen := make(map[deck.Card]int, len(h.BoardCards))
	for i, c := range h.BoardCards {
		if first, ok := seen[c]; ok {
			v.add(fmt.Sprintf("boardCards[%d]", i), "Card already used by boardCards[%d]: %s", first, c)
			valid = false
			continue
		}
		seen[c] = i
	}
	return valid
}

type cardPos struct{ player, card int }

func (h *GameHand) validatePlayers(v *validator) bool {
	if len(h.Players) == 0 {
		v.add("players", "must not be empty")
		return false
	}

	field := func(p cardPos) string {
		return fmt.Sprintf("players[%d].cards[%d]", p.player, p.card)
	}

	invalid := false
	for i, p := range h.Players {
		for j, c := range p.Cards {
			if !c.IsValid() {
				v.add(field(cardPos{i, j}), "Invalid card: %s", c)
				invalid = true
			}
		}
	}
	if invalid {
		return false
	}

	board := make(map[deck.Card]bool, len(h.BoardCards))
	for _, c := range h.BoardCards {
		board[c] = true
	}
	seen := make(map[deck.Card]cardPos)
	used := false
	for i, p := range h.Players {
		for j, c := range p.Cards {
			pos := cardPos{i, j}
			if board[c] {
				v.add(field(pos), "Card already used by board: %s", c)
				used = true
			}
			if first, ok := seen[c]; ok {
				v.add(field(pos), "Card already used by players[%d].cards[%d]: %s", first.player, first.card, c)
				used = true
				continue
			}
			seen[c] = pos
		}
	}
	if used {
		return false
	}

	ids := make(map[string]int, len(h.Players))
	dup := false
	for i, p := range h.Players {
		if first, ok := ids[p.UserID]; ok {
			v.add(fmt.Sprintf("players[%d]", i), "User id '%s' already used at players[%d]", p.UserID, first)
			dup = true
			continue
		}
		ids[p.UserID] = i
	}
	if dup {
		return false
	}

	for _, p := range h.Players {
		if p.Winner {
			return true
		}
	}
	v.add("players", "At least one player from players must be a winner. Please provide winner: true for winner player(s).")
	return false
}

func (h *GameHand) validateRoundBets(v *validator) bool {
	ids := make(map[string]bool, len(h.Players))
	for _, p := range h.Players {
		ids[p.UserID] = true
	}

	if len(h.RoundBets.PreFlop) < 2 {
		v.add("roundBets.pre-flop", "must contain at least the small and big blind")
		return false
	}

	boardGate := map[Round]string{
		Flop:  "The board cards size must be at least 3 card size on given flop bets",
		Turn:  "The board cards size must be at least 4 card size on given turn bets",
		River: "The board cards size must be equals to 5 on given river bets",
	}

	for _, r := range Rounds {
		bets := h.RoundBets.Bets(r)
		if msg, gated := boardGate[r]; gated && len(bets) > 0 && len(h.BoardCards) < r.BoardSize() {
			v.add("boardCards", "%s", msg)
			return false
		}
		missing := false
		for i, b := range bets {
			if !ids[b.UserID] {
				v.add(fmt.Sprintf("roundBets.%s[%d].userId", r, i), "User id does not exists in given players: %s", b.UserID)
				missing = true
			}
		}
		if missing {
			return false
		}
	}
	return true
}
