// Package rules grades single poker actions. Each rule inspects one turn of
// a hand and emits point-bearing decisions; pre-flop totals are normalized
// after all rules ran.
package rules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Rule identifies one of the rating rules
type Rule uint8

const (
	BetRule Rule = iota
	CallRule
	FoldRule
	CrackedRule
	RiverRule
)

// AllRules is the production rule set in evaluation order
var AllRules = []Rule{BetRule, CallRule, FoldRule, CrackedRule, RiverRule}

func (r Rule) String() string {
	switch r {
	case BetRule:
		return betRuleName
	case CallRule:
		return callRuleName
	case FoldRule:
		return foldRuleName
	case CrackedRule:
		return crackedRuleName
	case RiverRule:
		return riverRuleName
	default:
		return fmt.Sprintf("Rule(%d)", uint8(r))
	}
}

type evaluator struct {
	points *Points
	logger zerolog.Logger
}

func (e *evaluator) log(gs *GameState) *zerolog.Event {
	return e.logger.Debug().
		Str("user_id", gs.UserID).
		Stringer("round", gs.Index.Round).
		Int("turn", gs.Index.Turn)
}

func (e *evaluator) evaluate(r Rule, gs *GameState) ([]Decision, error) {
	switch r {
	case BetRule:
		return e.bet(gs)
	case CallRule:
		return e.call(gs)
	case FoldRule:
		return e.fold(gs)
	case CrackedRule:
		return e.cracked(gs)
	case RiverRule:
		return e.river(gs)
	default:
		return nil, fmt.Errorf("unknown rule: %s", r)
	}
}

// Pipeline runs the rules over one turn at a time
type Pipeline struct {
	eval       evaluator
	rules      []Rule
	concurrent bool
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPoints replaces the point tables
func WithPoints(p *Points) Option {
	return func(pl *Pipeline) { pl.eval.points = p }
}

// WithRules restricts the pipeline to the given rules
func WithRules(rules ...Rule) Option {
	return func(pl *Pipeline) { pl.rules = rules }
}

// WithConcurrency runs the rules of a turn in parallel
func WithConcurrency(enabled bool) Option {
	return func(pl *Pipeline) { pl.concurrent = enabled }
}

// NewPipeline creates a pipeline over every rule with the default points
func NewPipeline(logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		eval: evaluator{
			points: DefaultPoints(),
			logger: logger.With().Str("component", "rules").Logger(),
		},
		rules: AllRules,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate returns the decisions of every rule for the turn, in rule order,
// followed by the pre-flop normalization decision when one applies.
func (p *Pipeline) Evaluate(ctx context.Context, gs *GameState) ([]Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([][]Decision, len(p.rules))
	if p.concurrent && len(p.rules) > 1 {
		var g errgroup.Group
		for i, r := range p.rules {
			g.Go(func() error {
				out, err := p.eval.evaluate(r, gs)
				if err != nil {
					return fmt.Errorf("%s on %s: %w", r, gs.Index, err)
				}
				results[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, r := range p.rules {
			out, err := p.eval.evaluate(r, gs)
			if err != nil {
				return nil, fmt.Errorf("%s on %s: %w", r, gs.Index, err)
			}
			results[i] = out
		}
	}

	var decisions []Decision
	for _, out := range results {
		decisions = append(decisions, out...)
	}
	norm, err := normalize(gs, decisions)
	if err != nil {
		return nil, err
	}
	if norm != nil {
		decisions = append(decisions, *norm)
	}
	return decisions, nil
}
