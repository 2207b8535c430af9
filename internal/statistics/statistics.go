// Package statistics keeps the long-running per-player tallies of rated
// decisions. Documents are built from one hand and merged into the stored one.
package statistics

import (
	"fmt"
	"maps"
	"math"

	"github.com/lox/pokerrating/internal/rules"
)

// PlayerStatistic aggregates a player's decision history within one application
type PlayerStatistic struct {
	ID            string `json:"-"`
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	Version       int64  `json:"version"`

	TotalPositiveFinalSumDecisions int64 `json:"totalPositiveFinalSumDecisions"` // hands that ended with a net gain
	TotalNegativeFinalSumDecisions int64 `json:"totalNegativeFinalSumDecisions"` // hands that ended with a net loss
	MaxPositiveSumFinalDecisions   int64 `json:"maxPositiveSumFinalDecisions"`
	MaxNegativeSumFinalDecisions   int64 `json:"maxNegativeSumFinalDecisions"`
	TotalPositiveDecisions         int64 `json:"totalPositiveDecisions"`
	TotalNegativeDecisions         int64 `json:"totalNegativeDecisions"`

	TotalPositiveDecisionsPerRound map[string]int64            `json:"totalPositiveDecisionsPerRound,omitempty"`
	TotalNegativeDecisionsPerRound map[string]int64            `json:"totalNegativeDecisionsPerRound,omitempty"`
	TotalRulesCount                map[string]map[string]int64 `json:"totalRulesCount,omitempty"` // rule name -> decision name -> count
}

// DocID is the storage key shared by a player's rating and statistics
func DocID(applicationID, userID string) string {
	return "urn:applicationId:" + applicationID + ":userId:" + userID
}

// New returns an empty document for the player
func New(applicationID, userID string) *PlayerStatistic {
	return &PlayerStatistic{
		ID:            DocID(applicationID, userID),
		ApplicationID: applicationID,
		UserID:        userID,
	}
}

// Build tallies one hand's decisions for a player. finalChange is the
// penalized rating change the hand produced.
func Build(applicationID, userID string, decisions []rules.Decision, finalChange int64) *PlayerStatistic {
	s := New(applicationID, userID)
	switch {
	case finalChange > 0:
		s.MaxPositiveSumFinalDecisions = finalChange
		s.TotalPositiveFinalSumDecisions = 1
	case finalChange < 0:
		s.MaxNegativeSumFinalDecisions = finalChange
		s.TotalNegativeFinalSumDecisions = 1
	}

	s.TotalPositiveDecisionsPerRound = map[string]int64{}
	s.TotalNegativeDecisionsPerRound = map[string]int64{}
	s.TotalRulesCount = map[string]map[string]int64{}
	for _, d := range decisions {
		round := d.Index.Round.String()
		switch {
		case d.RatingChange > 0:
			s.TotalPositiveDecisions++
			s.TotalPositiveDecisionsPerRound[round]++
		case d.RatingChange < 0:
			s.TotalNegativeDecisions++
			s.TotalNegativeDecisionsPerRound[round]++
		}
		names, ok := s.TotalRulesCount[d.RuleName]
		if !ok {
			names = map[string]int64{}
			s.TotalRulesCount[d.RuleName] = names
		}
		names[d.Name]++
	}
	return s
}

// Append merges other into a copy of s. Counters saturate instead of
// overflowing; the extremes keep the larger gain and the deeper loss.
func (s *PlayerStatistic) Append(other *PlayerStatistic) (*PlayerStatistic, error) {
	if s.ID != other.ID {
		return nil, fmt.Errorf("could not append player statistic data on different id given '%s'. Expected is: '%s'", other.ID, s.ID)
	}
	return &PlayerStatistic{
		ID:            s.ID,
		ApplicationID: s.ApplicationID,
		UserID:        s.UserID,
		Version:       s.Version,

		TotalPositiveFinalSumDecisions: saturatingAdd(s.TotalPositiveFinalSumDecisions, other.TotalPositiveFinalSumDecisions),
		TotalNegativeFinalSumDecisions: saturatingAdd(s.TotalNegativeFinalSumDecisions, other.TotalNegativeFinalSumDecisions),
		MaxPositiveSumFinalDecisions:   max(s.MaxPositiveSumFinalDecisions, other.MaxPositiveSumFinalDecisions),
		MaxNegativeSumFinalDecisions:   min(s.MaxNegativeSumFinalDecisions, other.MaxNegativeSumFinalDecisions),
		TotalPositiveDecisions:         saturatingAdd(s.TotalPositiveDecisions, other.TotalPositiveDecisions),
		TotalNegativeDecisions:         saturatingAdd(s.TotalNegativeDecisions, other.TotalNegativeDecisions),

		TotalPositiveDecisionsPerRound: mergeCounts(s.TotalPositiveDecisionsPerRound, other.TotalPositiveDecisionsPerRound),
		TotalNegativeDecisionsPerRound: mergeCounts(s.TotalNegativeDecisionsPerRound, other.TotalNegativeDecisionsPerRound),
		TotalRulesCount:                mergeRuleCounts(s.TotalRulesCount, other.TotalRulesCount),
	}, nil
}

func saturatingAdd(x, y int64) int64 {
	sum := x + y
	if (x^sum)&(y^sum) < 0 {
		if x < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return sum
}

func mergeCounts(a, b map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(a)+len(b))
	maps.Copy(out, a)
	for k, v := range b {
		out[k] = saturatingAdd(out[k], v)
	}
	return out
}

func mergeRuleCounts(a, b map[string]map[string]int64) map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(a)+len(b))
	for rule, names := range a {
		out[rule] = maps.Clone(names)
	}
	for rule, names := range b {
		out[rule] = mergeCounts(out[rule], names)
	}
	return out
}
