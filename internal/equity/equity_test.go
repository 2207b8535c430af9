package equity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerrating/internal/deck"
	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/retry"
)

// fakeOracle serves deterministic percentages keyed by hole cards
type fakeOracle struct {
	mu            sync.Mutex
	wins          map[string]float64
	showdowns     map[string]float64
	winCalls      int
	showdownCalls int
	failStatus    int
	failTimes     int
	lastWin       WinRequest
}

func (f *fakeOracle) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status := f.takeFailure(); status != 0 {
			http.Error(w, `{"description":"boom"}`, status)
			return
		}

		switch r.URL.Path {
		case WinPercentagePath:
			var req WinRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.mu.Lock()
			f.winCalls++
			f.lastWin = req
			resp := WinResponse{}
			for _, p := range req.Players {
				wp := WinPlayer{Cards: p, WinPercentage: f.wins[p]}
				if len(req.Board) == 5 {
					wp.HandRank = &HandRank{Name: "Pair", Rank: 2000}
				}
				resp.Players = append(resp.Players, wp)
			}
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(resp)
		case ShowdownPercentagePath:
			var req ShowdownRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.mu.Lock()
			f.showdownCalls++
			resp := ShowdownResponse{ShowdownPercentage: f.showdowns[HoleCards(req.Player)]}
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeOracle) takeFailure() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimes == 0 {
		return 0
	}
	f.failTimes--
	return f.failStatus
}

func newTestClient(t *testing.T, oracle *fakeOracle) *Client {
	srv := httptest.NewServer(oracle.handler(t))
	t.Cleanup(srv.Close)
	cfg := DefaultClientConfig(srv.URL)
	cfg.Retry = retry.Policy{Attempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}
	cfg.RateLimit = 0
	return NewClient(cfg, zerolog.Nop(), quartz.NewReal())
}

var (
	alice = hand.Player{UserID: "alice", Cards: deck.MustParse("Ah", "Kd")}
	bob   = hand.Player{UserID: "bob", Cards: deck.MustParse("7c", "7s")}
)

func TestPreflopTable(t *testing.T) {
	table, err := DefaultPreflopTable()
	require.NoError(t, err)

	aces, err := table.Showdown(deck.MustParse("As", "Ad"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, aces)

	// order of hole cards does not matter
	a, err := table.Showdown(deck.MustParse("Ah", "Kd"))
	require.NoError(t, err)
	b, err := table.Showdown(deck.MustParse("Kd", "Ah"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Greater(t, a, 80.0)

	worst, err := table.Showdown(deck.MustParse("7c", "2d"))
	require.NoError(t, err)
	assert.Less(t, worst, 10.0)

	_, err = table.Showdown(deck.MustParse("Ah"))
	assert.Error(t, err)
}

func TestParsePreflopTableRejectsIncompleteData(t *testing.T) {
	_, err := ParsePreflopTable("As Ad 99.9\nKs Kd 99.4\n")
	assert.ErrorContains(t, err, "wrong pre flop percentages data")

	_, err = ParsePreflopTable("As Ad\n")
	assert.Error(t, err)
}

func TestParsePreflopTableRoundsHalfUp(t *testing.T) {
	var sb strings.Builder
	pairs := deck.NewDeck(nil).Pairs()
	for i, p := range pairs {
		pct := "10.49"
		if i == 0 {
			pct = "10.50"
		}
		sb.WriteString(p[0].String() + " " + p[1].String() + " " + pct + "\n")
	}
	table, err := ParsePreflopTable(sb.String())
	require.NoError(t, err)

	first, err := table.Showdown(pairs[0][:])
	require.NoError(t, err)
	assert.Equal(t, 11.0, first)
	second, err := table.Showdown(pairs[1][:])
	require.NoError(t, err)
	assert.Equal(t, 10.0, second)
}

func TestCalculatorPreflop(t *testing.T) {
	oracle := &fakeOracle{wins: map[string]float64{"Ah|Kd": 65.5, "7c|7s": 34.5}}
	calc, err := NewCalculator(zerolog.Nop(), newTestClient(t, oracle))
	require.NoError(t, err)

	res, err := calc.Calculate(context.Background(), Request{Players: []hand.Player{alice, bob}})
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, 65.5, res["alice"].WinPercentage)
	assert.Equal(t, 34.5, res["bob"].WinPercentage)
	assert.Nil(t, res["alice"].Rank)
	assert.Equal(t, 1, oracle.winCalls)
	assert.Zero(t, oracle.showdownCalls, "preflop showdown comes from the table")

	table, _ := DefaultPreflopTable()
	want, _ := table.Showdown(alice.Cards)
	assert.Equal(t, want, res["alice"].ShowdownPercentage)
}

func TestCalculatorPostflopUsesOracleAndCache(t *testing.T) {
	oracle := &fakeOracle{
		wins:      map[string]float64{"Ah|Kd": 20, "7c|7s": 80},
		showdowns: map[string]float64{"Ah|Kd": 41, "7c|7s": 77},
	}
	cache := NewMemoryCache()
	calc, err := NewCalculator(zerolog.Nop(), newTestClient(t, oracle),
		WithCache(cache), WithExecutor(NewExecutor(4)))
	require.NoError(t, err)

	req := Request{
		Players: []hand.Player{alice, bob},
		Board:   deck.MustParse("2c", "7d", "9h", "Js", "3h"),
		Dead:    deck.MustParse("Qs", "Qd"),
	}
	res, err := calc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 77.0, res["bob"].ShowdownPercentage)
	assert.Equal(t, 41.0, res["alice"].ShowdownPercentage)
	require.NotNil(t, res["bob"].Rank)
	assert.Equal(t, 2000, *res["bob"].Rank)
	assert.Equal(t, "Pair", *res["bob"].RankName)
	assert.Equal(t, []string{"Ah|Kd", "7c|7s"}, oracle.lastWin.Players)
	assert.Equal(t, deck.MustParse("Qs", "Qd"), oracle.lastWin.Excludes)
	assert.Equal(t, 2, oracle.showdownCalls)
	assert.Equal(t, 2, cache.Len())

	_, err = calc.Calculate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, oracle.winCalls)
	assert.Equal(t, 2, oracle.showdownCalls, "second run is served from the cache")
}

func TestCalculatorReusesCarriedShowdown(t *testing.T) {
	oracle := &fakeOracle{wins: map[string]float64{"Ah|Kd": 50, "7c|7s": 50}}
	calc, err := NewCalculator(zerolog.Nop(), newTestClient(t, oracle))
	require.NoError(t, err)

	res, err := calc.Calculate(context.Background(), Request{
		Players:  []hand.Player{alice, bob},
		Board:    deck.MustParse("2c", "7d", "9h"),
		Showdown: map[string]float64{"alice": 12, "bob": 88},
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, res["alice"].ShowdownPercentage)
	assert.Equal(t, 88.0, res.Showdown()["bob"])
	assert.Zero(t, oracle.showdownCalls)
}

func TestCalculatorSoleSurvivor(t *testing.T) {
	oracle := &fakeOracle{showdowns: map[string]float64{"Ah|Kd": 30}}
	calc, err := NewCalculator(zerolog.Nop(), newTestClient(t, oracle))
	require.NoError(t, err)

	res, err := calc.Calculate(context.Background(), Request{
		Players: []hand.Player{alice},
		Board:   deck.MustParse("2c", "7d", "9h"),
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res["alice"].WinPercentage)
	require.NotNil(t, res["alice"].Rank)
	assert.Equal(t, 0, *res["alice"].Rank)
	assert.Equal(t, "N/A", *res["alice"].RankName)
	assert.Zero(t, oracle.winCalls)
	assert.Equal(t, 30.0, res["alice"].ShowdownPercentage)
}

func TestClientRetriesServerErrors(t *testing.T) {
	oracle := &fakeOracle{
		wins:       map[string]float64{"Ah|Kd": 60, "7c|7s": 40},
		failStatus: http.StatusServiceUnavailable,
		failTimes:  2,
	}
	client := newTestClient(t, oracle)

	resp, err := client.WinPercentage(context.Background(), WinRequest{Players: []string{"Ah|Kd", "7c|7s"}})
	require.NoError(t, err)
	assert.Len(t, resp.Players, 2)
}

func TestClientDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad board", http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := DefaultClientConfig(srv.URL)
	cfg.Retry = retry.Policy{Attempts: 5, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}
	client := NewClient(cfg, zerolog.Nop(), nil)

	_, err := client.ShowdownPercentage(context.Background(), ShowdownRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracle)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientExhaustsRetries(t *testing.T) {
	oracle := &fakeOracle{failStatus: http.StatusInternalServerError, failTimes: 10}
	client := newTestClient(t, oracle)

	_, err := client.WinPercentage(context.Background(), WinRequest{Players: []string{"Ah|Kd", "7c|7s"}})
	assert.ErrorIs(t, err, ErrOracle)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 7, oracle.failTimes)
}

func TestExecutorKeepsOrderAndFailsFast(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		e := NewExecutor(parallelism)
		tasks := make([]func(context.Context) (int, error), 10)
		for i := range tasks {
			tasks[i] = func(context.Context) (int, error) { return i * i, nil }
		}
		out, err := Execute(context.Background(), e, tasks)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, out)

		boom := errors.New("boom")
		tasks[3] = func(context.Context) (int, error) { return 0, boom }
		_, err = Execute(context.Background(), e, tasks)
		assert.ErrorIs(t, err, boom)
	}
}

func TestCacheKeyIgnoresOrder(t *testing.T) {
	a := CacheKey(deck.MustParse("2c", "7d", "9h"), deck.MustParse("Ah", "Kd"))
	b := CacheKey(deck.MustParse("9h", "2c", "7d"), deck.MustParse("Kd", "Ah"))
	assert.Equal(t, a, b)
}
