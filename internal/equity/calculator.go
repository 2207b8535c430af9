package equity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lox/pokerrating/internal/deck"
)

const soleSurvivorRankName = "N/A"

// Calculator is the Supplier backed by the oracle, the preflop table and a
// showdown cache.
type Calculator struct {
	oracle   Oracle
	preflop  *PreflopTable
	cache    Cache
	executor *Executor
	logger   zerolog.Logger
}

// Option customizes a Calculator
type Option func(*Calculator)

// WithCache sets the showdown cache; the default stores nothing
func WithCache(cache Cache) Option {
	return func(c *Calculator) { c.cache = cache }
}

// WithExecutor sets the executor for per-player showdown calls
func WithExecutor(e *Executor) Option {
	return func(c *Calculator) { c.executor = e }
}

// WithPreflopTable replaces the embedded preflop table
func WithPreflopTable(t *PreflopTable) Option {
	return func(c *Calculator) { c.preflop = t }
}

// NewCalculator creates a Calculator; it fails only if the embedded preflop
// table is corrupt.
func NewCalculator(logger zerolog.Logger, oracle Oracle, opts ...Option) (*Calculator, error) {
	c := &Calculator{
		oracle:   oracle,
		cache:    NopCache{},
		executor: NewExecutor(1),
		logger:   logger.With().Str("component", "equity").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.preflop == nil {
		t, err := DefaultPreflopTable()
		if err != nil {
			return nil, err
		}
		c.preflop = t
	}
	return c, nil
}

// Calculate returns percentages for every player in req.Players
func (c *Calculator) Calculate(ctx context.Context, req Request) (Result, error) {
	if len(req.Players) == 0 {
		return nil, fmt.Errorf("no contesting players")
	}
	wins, err := c.winPercentages(ctx, req)
	if err != nil {
		return nil, err
	}
	showdowns, err := c.showdownPercentages(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(Result, len(req.Players))
	for _, p := range req.Players {
		win, ok := wins[p.UserID]
		if !ok {
			return nil, fmt.Errorf("win percentage player missing mapping for user id: %s", p.UserID)
		}
		sd, ok := showdowns[p.UserID]
		if !ok {
			return nil, fmt.Errorf("showdown percentage missing mapping for user id: %s", p.UserID)
		}
		pp := PlayerPercentage{
			UserID:             p.UserID,
			WinPercentage:      win.WinPercentage,
			ShowdownPercentage: sd,
		}
		if win.HandRank != nil {
			rank, name := win.HandRank.Rank, win.HandRank.Name
			pp.Rank, pp.RankName = &rank, &name
		}
		out[p.UserID] = pp
	}
	return out, nil
}

func (c *Calculator) winPercentages(ctx context.Context, req Request) (map[string]WinPlayer, error) {
	if len(req.Players) == 1 {
		p := req.Players[0]
		return map[string]WinPlayer{
			p.UserID: {
				Cards:         HoleCards(p.Cards),
				WinPercentage: 100,
				HandRank:      &HandRank{Name: soleSurvivorRankName, Rank: 0},
			},
		}, nil
	}

	cardsToUser := make(map[string]string, len(req.Players))
	players := make([]string, len(req.Players))
	for i, p := range req.Players {
		players[i] = HoleCards(p.Cards)
		cardsToUser[players[i]] = p.UserID
	}

	resp, err := c.oracle.WinPercentage(ctx, WinRequest{
		Players:  players,
		Board:    req.Board,
		Excludes: req.Dead,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]WinPlayer, len(resp.Players))
	for _, wp := range resp.Players {
		userID, ok := cardsToUser[wp.Cards]
		if !ok {
			return nil, fmt.Errorf("unexpected missing player user ID mapping for cards: %s", wp.Cards)
		}
		out[userID] = wp
	}
	return out, nil
}

func (c *Calculator) showdownPercentages(ctx context.Context, req Request) (map[string]float64, error) {
	if len(req.Showdown) > 0 {
		return req.Showdown, nil
	}

	tasks := make([]func(context.Context) (float64, error), len(req.Players))
	for i, p := range req.Players {
		tasks[i] = func(ctx context.Context) (float64, error) {
			return c.showdown(ctx, req.Board, p.Cards)
		}
	}
	values, err := Execute(ctx, c.executor, tasks)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(req.Players))
	for i, p := range req.Players {
		out[p.UserID] = values[i]
	}
	return out, nil
}

func (c *Calculator) showdown(ctx context.Context, board, hole []deck.Card) (float64, error) {
	if len(board) == 0 {
		return c.preflop.Showdown(hole)
	}

	key := CacheKey(board, hole)
	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Showdown cache read failed")
	} else if ok {
		return v, nil
	}

	resp, err := c.oracle.ShowdownPercentage(ctx, ShowdownRequest{Board: board, Player: hole})
	if err != nil {
		return 0, err
	}
	if err := c.cache.Set(ctx, key, resp.ShowdownPercentage); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Showdown cache write failed")
	}
	return resp.ShowdownPercentage, nil
}

var _ Supplier = (*Calculator)(nil)
