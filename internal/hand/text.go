package hand

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lox/pokerrating/internal/deck"
)

// TextApplicationID is the application id assigned to hands read from the
// text format.
const TextApplicationID = "app1"

// ErrMalformedText is wrapped by every ParseText failure
var ErrMalformedText = errors.New("malformed hand text")

var lineSplit = regexp.MustCompile(`[\r\n]+`)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedText, fmt.Sprintf(format, args...))
}

// ParseText reads the line oriented hand notation used for manual testing:
//
//	Players: AhKd#alice 7c7s#bob
//	Winners: AhKd#alice
//	Board: 2c 5d 9h Js Qc
//	PreFlop: AhKd:small-blind:10:0, 7c7s:big-blind:20:10, AhKd:call:10:30
//	Flop: ...
//	Turn: ...
//	River: ...
//
// A player token is four card characters optionally followed by a user id
// (leading/trailing '#' stripped); without one the token itself is the id.
// Bets are "player-cards:bet-type:amount:pot". The first four lines are
// required. The returned hand is not validated.
func ParseText(payload string) (GameHand, error) {
	lines := lineSplit.Split(strings.TrimSpace(payload), -1)
	if len(lines) < 4 {
		return GameHand{}, malformed("Please provide at least 4 lines: Players, Winners, Board, PreFlop")
	}

	winners := make(map[string]bool)
	for _, tok := range fields(lines[1], "Winners:") {
		if len(tok) < 4 {
			return GameHand{}, malformed("Winner card should be >= 4: %s", tok)
		}
		winners[tok] = true
	}
	if len(winners) == 0 {
		return GameHand{}, malformed("Winners is empty")
	}

	var players []Player
	cardsToUser := make(map[string]string)
	for _, tok := range fields(lines[0], "Players:") {
		if len(tok) < 4 {
			return GameHand{}, malformed("Player card should be >= 4: %s", tok)
		}
		userID := tok
		if len(tok) > 4 {
			userID = strings.Trim(tok[4:], "#")
		}
		cards := []deck.Card{deck.Parse(tok[0:2]), deck.Parse(tok[2:4])}
		key := cards[0].String() + cards[1].String()
		if _, dup := cardsToUser[key]; dup {
			return GameHand{}, malformed("Duplicate player cards: %s", key)
		}
		cardsToUser[key] = userID
		players = append(players, Player{UserID: userID, Winner: winners[tok], Cards: cards})
	}

	board := []deck.Card{}
	for _, tok := range fields(lines[2], "Board:") {
		if len(tok) != 2 {
			return GameHand{}, malformed("Board card should be 2 length: %s", tok)
		}
		board = append(board, deck.Parse(tok))
	}

	prefixes := [...]string{"PreFlop:", "Flop:", "Turn:", "River:"}
	var rounds [4][]Bet
	for i := range rounds {
		rounds[i] = []Bet{}
		idx := 3 + i
		if idx >= len(lines) {
			continue
		}
		bets, err := parseBets(trimPrefix(lines[idx], prefixes[i]), cardsToUser)
		if err != nil {
			return GameHand{}, err
		}
		rounds[i] = bets
	}

	return GameHand{
		ApplicationID: TextApplicationID,
		SessionID:     uuid.NewString(),
		BoardCards:    board,
		Players:       players,
		RoundBets: RoundBets{
			PreFlop: rounds[0],
			Flop:    rounds[1],
			Turn:    rounds[2],
			River:   rounds[3],
		},
	}, nil
}

func trimPrefix(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), prefix))
}

func fields(line, prefix string) []string {
	return strings.Fields(trimPrefix(line, prefix))
}

// splitNonEmpty splits on sep, trims every part and drops empty ones
func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBets(line string, cardsToUser map[string]string) ([]Bet, error) {
	bets := []Bet{}
	for _, data := range splitNonEmpty(line, ",") {
		parts := splitNonEmpty(data, ":")
		if len(parts) != 4 {
			return nil, malformed("Bet data is wrong, please provide: player-cards:bet-type:amount:pot")
		}
		userID, ok := cardsToUser[parts[0]]
		if !ok {
			return nil, malformed("Missing mapping to user id for cards: %s", parts[0])
		}
		amount, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, malformed("invalid bet amount %q", parts[2])
		}
		betType, err := ParseBetType(parts[1])
		if err != nil {
			return nil, malformed("%v", err)
		}
		pot, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, malformed("invalid bet pot %q", parts[3])
		}
		bets = append(bets, Bet{UserID: userID, Type: betType, Amount: amount, Pot: pot})
	}
	return bets, nil
}
