// Package rating turns a hand's rule decisions into persisted rating changes.
package rating

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerrating/internal/engine"
	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/rules"
	"github.com/lox/pokerrating/internal/statistics"
	"github.com/lox/pokerrating/internal/store"
)

// Executor rates the decisions of a hand
type Executor interface {
	Execute(ctx context.Context, h *hand.GameHand) (*engine.Result, error)
}

// Result reports a rated hand. SumDecisions holds the raw per-player sums,
// FinalChanges the tier adjusted deltas that were persisted.
type Result struct {
	OperationTime time.Duration
	PrevRatings   []store.PlayerRating
	NewRatings    []store.PlayerRating
	SumDecisions  map[string]int64
	FinalChanges  map[string]int64
	Decisions     []rules.Decision
	Percentages   rules.Percentages
}

// Calculator rates hands and persists the outcome
type Calculator struct {
	executor Executor
	store    store.Store
	tiers    Tiers
	clock    quartz.Clock
	logger   zerolog.Logger
}

type Option func(*Calculator)

func WithTiers(tiers Tiers) Option {
	return func(c *Calculator) { c.tiers = tiers }
}

func WithClock(clock quartz.Clock) Option {
	return func(c *Calculator) { c.clock = clock }
}

// NewCalculator creates a calculator
func NewCalculator(logger zerolog.Logger, executor Executor, st store.Store, opts ...Option) *Calculator {
	c := &Calculator{
		executor: executor,
		store:    st,
		tiers:    DefaultTiers,
		clock:    quartz.NewReal(),
		logger:   logger.With().Str("component", "rating").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate validates and rates the hand, applies the penalized changes and
// records statistics. Statistics failures are logged, not returned.
func (c *Calculator) Calculate(ctx context.Context, h *hand.GameHand) (*Result, error) {
	start := c.clock.Now()
	if err := h.Validate(); err != nil {
		return nil, err
	}

	exec, err := c.executor.Execute(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("execute rules: %w", err)
	}

	userIDs := make([]string, 0, len(h.Players))
	for _, p := range h.Players {
		userIDs = append(userIDs, p.UserID)
	}
	prev, err := c.store.GetRatings(ctx, h.ApplicationID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get ratings: %w", err)
	}

	sums := rules.Sum(exec.Decisions)
	final := make(map[string]int64, len(sums))
	for userID, sum := range sums {
		change, err := c.penalize(sum, prev, h.ApplicationID, userID)
		if err != nil {
			return nil, err
		}
		final[userID] = change
	}

	if err := c.store.AddRatings(ctx, h.ApplicationID, h.SessionID, final); err != nil {
		return nil, fmt.Errorf("add ratings: %w", err)
	}
	c.appendStatistics(ctx, h, exec.Decisions, final)

	next, err := c.store.GetRatings(ctx, h.ApplicationID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get ratings: %w", err)
	}

	res := &Result{
		OperationTime: c.clock.Since(start),
		PrevRatings:   prev,
		NewRatings:    next,
		SumDecisions:  sums,
		FinalChanges:  final,
		Decisions:     exec.Decisions,
		Percentages:   exec.Percentages,
	}
	c.logger.Info().
		Str("application_id", h.ApplicationID).
		Str("session_id", h.SessionID).
		Int("decisions", len(res.Decisions)).
		Dur("elapsed", res.OperationTime).
		Msg("Hand rated")
	return res, nil
}

func (c *Calculator) penalize(sum int64, ratings []store.PlayerRating, applicationID, userID string) (int64, error) {
	i := slices.IndexFunc(ratings, func(r store.PlayerRating) bool { return r.UserID == userID })
	if i < 0 {
		return 0, fmt.Errorf("could not find existing rating for application '%s' and user '%s'", applicationID, userID)
	}
	tier, ok := c.tiers.For(ratings[i].Rating)
	if !ok {
		return 0, fmt.Errorf("missing penalization coefficient for rating: %d", ratings[i].Rating)
	}
	return tier.Penalize(sum), nil
}

func (c *Calculator) appendStatistics(ctx context.Context, h *hand.GameHand, decisions []rules.Decision, final map[string]int64) {
	byUser := make(map[string][]rules.Decision)
	for _, d := range decisions {
		byUser[d.UserID()] = append(byUser[d.UserID()], d)
	}
	for userID, ds := range byUser {
		change, ok := final[userID]
		if !ok {
			c.logger.Error().
				Str("user_id", userID).
				Str("session_id", h.SessionID).
				Msg("Missing final rating change for statistics")
			continue
		}
		st := statistics.Build(h.ApplicationID, userID, ds, change)
		if _, err := c.store.AppendStatistic(ctx, st); err != nil {
			c.logger.Error().Err(err).
				Str("user_id", userID).
				Str("application_id", h.ApplicationID).
				Msg("Could not append player statistic")
		}
	}
}
