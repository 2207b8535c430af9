package store

import (
	"context"
	"maps"
	"sync"

	"github.com/lox/pokerrating/internal/statistics"
)

var _ Backend = (*Memory)(nil)

// Memory is a Backend kept in process memory. Documents are copied on the
// way in and out.
type Memory struct {
	mu      sync.Mutex
	ratings map[string]*RatingDoc
	stats   map[string]*statistics.PlayerStatistic
}

func NewMemory() *Memory {
	return &Memory{
		ratings: make(map[string]*RatingDoc),
		stats:   make(map[string]*statistics.PlayerStatistic),
	}
}

func (m *Memory) LoadRating(_ context.Context, id string) (*RatingDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.ratings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.clone(), nil
}

func (m *Memory) InsertRating(_ context.Context, doc *RatingDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ratings[doc.ID]; ok {
		return ErrDuplicate
	}
	m.ratings[doc.ID] = doc.clone()
	return nil
}

func (m *Memory) UpdateRating(_ context.Context, doc *RatingDoc, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.ratings[doc.ID]
	if !ok || cur.Version != version {
		return ErrVersionConflict
	}
	next := doc.clone()
	next.Version = version + 1
	m.ratings[doc.ID] = next
	return nil
}

func (m *Memory) DeleteRating(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ratings, id)
	return nil
}

func (m *Memory) LoadStatistic(_ context.Context, id string) (*statistics.PlayerStatistic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStatistic(st), nil
}

func (m *Memory) InsertStatistic(_ context.Context, st *statistics.PlayerStatistic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stats[st.ID]; ok {
		return ErrDuplicate
	}
	m.stats[st.ID] = cloneStatistic(st)
	return nil
}

func (m *Memory) UpdateStatistic(_ context.Context, st *statistics.PlayerStatistic, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.stats[st.ID]
	if !ok || cur.Version != version {
		return ErrVersionConflict
	}
	next := cloneStatistic(st)
	next.Version = version + 1
	m.stats[st.ID] = next
	return nil
}

func (m *Memory) DeleteStatistic(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, id)
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneStatistic(st *statistics.PlayerStatistic) *statistics.PlayerStatistic {
	c := *st
	c.TotalPositiveDecisionsPerRound = maps.Clone(st.TotalPositiveDecisionsPerRound)
	c.TotalNegativeDecisionsPerRound = maps.Clone(st.TotalNegativeDecisionsPerRound)
	if st.TotalRulesCount != nil {
		c.TotalRulesCount = make(map[string]map[string]int64, len(st.TotalRulesCount))
		for rule, names := range st.TotalRulesCount {
			c.TotalRulesCount[rule] = maps.Clone(names)
		}
	}
	return &c
}
