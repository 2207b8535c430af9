package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/retry"
	"github.com/lox/pokerrating/internal/rules"
	"github.com/lox/pokerrating/internal/statistics"
)

var fastRetry = retry.Policy{Attempts: 200, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func newService(t *testing.T, b Backend, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithConflictPolicy(fastRetry), WithTransientPolicy(fastRetry)}, opts...)
	return New(zerolog.Nop(), b, opts...)
}

func TestGetRatingsDefaults(t *testing.T) {
	ctx := context.Background()
	s := newService(t, NewMemory())
	require.NoError(t, s.AddRatings(ctx, "app1", "s1", map[string]int64{"bob": 25}))

	ratings, err := s.GetRatings(ctx, "app1", []string{"carol", "bob"})
	require.NoError(t, err)
	assert.Equal(t, []PlayerRating{
		{ApplicationID: "app1", UserID: "carol", Rating: DefaultRating},
		{ApplicationID: "app1", UserID: "bob", Rating: DefaultRating + 25},
	}, ratings)

	other, err := s.GetRatings(ctx, "app2", []string{"bob"})
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, other[0].Rating)
}

func TestAddRatingsKeepsHistory(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock.Set(start)
	s := newService(t, NewMemory(), WithClock(clock))

	require.NoError(t, s.AddRatings(ctx, "app1", "s1", map[string]int64{"alice": 40, "bob": -15}))
	clock.Advance(time.Minute)
	require.NoError(t, s.AddRatings(ctx, "app1", "s2", map[string]int64{"alice": -10}))

	doc, err := s.GetRatingDoc(ctx, "app1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "urn:applicationId:app1:userId:alice", doc.ID)
	assert.Equal(t, int64(10030), doc.Rating)
	assert.Equal(t, "s2", doc.SessionID)
	assert.Equal(t, int64(2), doc.Version)
	assert.Equal(t, start.Add(time.Minute), doc.UpdatedAt)
	assert.Equal(t, []RatingHistory{
		{Version: 1, UpdatedAt: start, Rating: 10040, SessionID: "s1"},
		{Version: 0, UpdatedAt: start, Rating: 10000, SessionID: "s1"},
	}, doc.RatingHistories)

	bob, err := s.GetRatingDoc(ctx, "app1", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(9985), bob.Rating)
}

func TestGetRatingDocNotFound(t *testing.T) {
	_, err := newService(t, NewMemory()).GetRatingDoc(context.Background(), "app1", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

// flakyBackend fails the first n rating updates with a conflict and the first
// m loads with a transient error
type flakyBackend struct {
	Backend
	conflicts atomic.Int32
	failures  atomic.Int32
	updates   atomic.Int32
}

func (f *flakyBackend) UpdateRating(ctx context.Context, doc *RatingDoc, version int64) error {
	f.updates.Add(1)
	if f.conflicts.Add(-1) >= 0 {
		return ErrVersionConflict
	}
	return f.Backend.UpdateRating(ctx, doc, version)
}

func (f *flakyBackend) LoadRating(ctx context.Context, id string) (*RatingDoc, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("connection reset")
	}
	return f.Backend.LoadRating(ctx, id)
}

func TestAddRatingsRetriesConflicts(t *testing.T) {
	b := &flakyBackend{Backend: NewMemory()}
	b.conflicts.Store(3)
	s := newService(t, b)

	require.NoError(t, s.AddRatings(context.Background(), "app1", "s1", map[string]int64{"alice": 5}))
	assert.Equal(t, int32(4), b.updates.Load())

	doc, err := s.GetRatingDoc(context.Background(), "app1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10005), doc.Rating)
}

func TestAddRatingsGivesUpAfterAttempts(t *testing.T) {
	b := &flakyBackend{Backend: NewMemory()}
	b.conflicts.Store(1000)
	s := newService(t, b, WithConflictPolicy(retry.Policy{Attempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}))

	err := s.AddRatings(context.Background(), "app1", "s1", map[string]int64{"alice": 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, int32(3), b.updates.Load())
}

func TestTransientLoadErrorsAreRetried(t *testing.T) {
	b := &flakyBackend{Backend: NewMemory()}
	b.failures.Store(2)
	s := newService(t, b)

	ratings, err := s.GetRatings(context.Background(), "app1", []string{"alice"})
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, ratings[0].Rating)
}

func TestConcurrentAddRatings(t *testing.T) {
	ctx := context.Background()
	s := newService(t, NewMemory(), WithConflictPolicy(retry.Policy{Attempts: 1000, MinDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, Jitter: true}))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddRatings(ctx, "app1", "s1", map[string]int64{"alice": 1}))
		}()
	}
	wg.Wait()

	doc, err := s.GetRatingDoc(ctx, "app1", "alice")
	require.NoError(t, err)
	assert.Equal(t, DefaultRating+20, doc.Rating)
	assert.Equal(t, int64(20), doc.Version)
	assert.Len(t, doc.RatingHistories, 20)
}

func TestResetRating(t *testing.T) {
	ctx := context.Background()
	s := newService(t, NewMemory())
	require.NoError(t, s.AddRatings(ctx, "app1", "s1", map[string]int64{"alice": 40}))
	_, err := s.AppendStatistic(ctx, statistics.Build("app1", "alice", nil, 40))
	require.NoError(t, err)

	doc, err := s.ResetRating(ctx, "app1", "alice", 12000)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), doc.Rating)
	assert.Equal(t, "initial-on-reset", doc.SessionID)
	assert.Zero(t, doc.Version)
	assert.Empty(t, doc.RatingHistories)

	_, err = s.GetStatistic(ctx, "app1", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendStatistic(t *testing.T) {
	ctx := context.Background()
	s := newService(t, NewMemory())

	d := rules.Decision{Name: "Good Bet", RuleName: "Bet Rule", RatingChange: 20, Index: rules.GameStateIndex{Round: hand.Flop}}
	first, err := s.AppendStatistic(ctx, statistics.Build("app1", "alice", []rules.Decision{d}, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	second, err := s.AppendStatistic(ctx, statistics.Build("app1", "alice", []rules.Decision{d, d}, 35))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	stored, err := s.GetStatistic(ctx, "app1", "alice")
	require.NoError(t, err)
	assert.Equal(t, second, stored)
	assert.Equal(t, int64(2), stored.TotalPositiveFinalSumDecisions)
	assert.Equal(t, int64(35), stored.MaxPositiveSumFinalDecisions)
	assert.Equal(t, int64(3), stored.TotalPositiveDecisions)
	assert.Equal(t, map[string]map[string]int64{"Bet Rule": {"Good Bet": 3}}, stored.TotalRulesCount)
}

// backendContract exercises the raw optimistic-locking behaviour of a Backend
func backendContract(t *testing.T, b Backend) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := b.LoadRating(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	doc := &RatingDoc{ID: "r1", ApplicationID: "app1", UserID: "alice", Rating: 10000, UpdatedAt: now, SessionID: "s1"}
	require.NoError(t, b.InsertRating(ctx, doc))
	assert.ErrorIs(t, b.InsertRating(ctx, doc), ErrDuplicate)

	next := doc.Increment(15, "s2", now.Add(time.Second))
	require.NoError(t, b.UpdateRating(ctx, next, 0))
	assert.ErrorIs(t, b.UpdateRating(ctx, next, 0), ErrVersionConflict)

	loaded, err := b.LoadRating(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(10015), loaded.Rating)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, "s2", loaded.SessionID)
	assert.True(t, now.Add(time.Second).Equal(loaded.UpdatedAt))
	require.Len(t, loaded.RatingHistories, 1)
	assert.Equal(t, int64(10000), loaded.RatingHistories[0].Rating)
	assert.True(t, now.Equal(loaded.RatingHistories[0].UpdatedAt))

	require.NoError(t, b.DeleteRating(ctx, "r1"))
	_, err = b.LoadRating(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	st := statistics.New("app1", "alice")
	require.NoError(t, b.InsertStatistic(ctx, st))
	assert.ErrorIs(t, b.InsertStatistic(ctx, st), ErrDuplicate)

	merged, err := st.Append(statistics.Build("app1", "alice", []rules.Decision{
		{Name: "Bad Call", RuleName: "Call Rule", RatingChange: -20, Index: rules.GameStateIndex{Round: hand.Turn}},
	}, -20))
	require.NoError(t, err)
	require.NoError(t, b.UpdateStatistic(ctx, merged, 0))
	assert.ErrorIs(t, b.UpdateStatistic(ctx, merged, 0), ErrVersionConflict)

	got, err := b.LoadStatistic(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(-20), got.MaxNegativeSumFinalDecisions)
	assert.Equal(t, map[string]int64{"turn": 1}, got.TotalNegativeDecisionsPerRound)
	assert.Equal(t, map[string]map[string]int64{"Call Rule": {"Bad Call": 1}}, got.TotalRulesCount)

	require.NoError(t, b.DeleteStatistic(ctx, st.ID))
	_, err = b.LoadStatistic(ctx, st.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend(t *testing.T) {
	backendContract(t, NewMemory())
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "ratings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	backendContract(t, b)
}

func TestSQLiteService(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)
	s := newService(t, b)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.AddRatings(ctx, "app1", "s1", map[string]int64{"alice": 20}))
	require.NoError(t, s.AddRatings(ctx, "app1", "s2", map[string]int64{"alice": 20}))
	ratings, err := s.GetRatings(ctx, "app1", []string{"alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(10040), ratings[0].Rating)
}

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("POKERRATING_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("POKERRATING_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	b, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.Migrate(ctx))
	_ = b.DeleteRating(ctx, "r1")
	_ = b.DeleteStatistic(ctx, statistics.DocID("app1", "alice"))
	backendContract(t, b)
}

func TestEmptySQLitePath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
}
