package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerrating/internal/deck"
	"github.com/lox/pokerrating/internal/engine"
	"github.com/lox/pokerrating/internal/hand"
	"github.com/lox/pokerrating/internal/rating"
	"github.com/lox/pokerrating/internal/rules"
	"github.com/lox/pokerrating/internal/store"
)

const textHand = `Players: AhKd#alice 7c7s#bob
Winners: AhKd#alice
Board: 2c 5d 9h Js Qc
PreFlop: AhKd:small-blind:10:0, 7c7s:big-blind:20:10, AhKd:call:10:30, 7c7s:check:0:40
`

type stubExecutor struct {
	err error
}

func (s stubExecutor) Execute(context.Context, *hand.GameHand) (*engine.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &engine.Result{Decisions: []rules.Decision{
		{Name: "Good Bet", RuleName: "Bet Rule", Bet: hand.Bet{UserID: "alice"}, RatingChange: 60,
			Index: rules.GameStateIndex{Round: hand.Flop, Turn: 1}},
		{Name: "Bad Call", RuleName: "Call Rule", Bet: hand.Bet{UserID: "bob"}, RatingChange: -30,
			Index: rules.GameStateIndex{Round: hand.Flop, Turn: 2}},
	}}, nil
}

func newTestServer(t *testing.T, exec rating.Executor) (*Server, *store.Service) {
	t.Helper()
	st := store.New(zerolog.Nop(), store.NewMemory())
	calc := rating.NewCalculator(zerolog.Nop(), exec, st)
	return New(zerolog.Nop(), calc, st), st
}

func headsUp() hand.GameHand {
	return hand.GameHand{
		ApplicationID: "app1",
		SessionID:     "s1",
		BoardCards:    deck.MustParse("2c", "5d", "9h", "Js", "Qc"),
		Players: []hand.Player{
			{UserID: "alice", Winner: true, Cards: deck.MustParse("Ah", "Kd")},
			{UserID: "bob", Cards: deck.MustParse("7c", "7s")},
		},
		RoundBets: hand.RoundBets{
			PreFlop: []hand.Bet{
				{UserID: "alice", Type: hand.SmallBlind, Amount: 10},
				{UserID: "bob", Type: hand.BigBlind, Amount: 20, Pot: 10},
				{UserID: "alice", Type: hand.Call, Amount: 10, Pot: 30},
				{UserID: "bob", Type: hand.Check, Pot: 40},
			},
		},
	}
}

func do(t *testing.T, s *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func postHand(t *testing.T, s *Server, h hand.GameHand) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(h)
	require.NoError(t, err)
	return do(t, s, http.MethodPost, "/internal/rating/game/calc", bytes.NewReader(payload))
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestCalc(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})

	rec := postHand(t, s, headsUp())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CalcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]int64{"alice": 60, "bob": -30}, resp.SumDecisions)
	assert.Equal(t, []store.PlayerRating{
		{ApplicationID: "app1", UserID: "alice", Rating: 10000},
		{ApplicationID: "app1", UserID: "bob", Rating: 10000},
	}, resp.PrevRatings)
	assert.Equal(t, []store.PlayerRating{
		{ApplicationID: "app1", UserID: "alice", Rating: 10030},
		{ApplicationID: "app1", UserID: "bob", Rating: 9955},
	}, resp.NewRatings)
	require.Len(t, resp.Decisions, 2)
	assert.Equal(t, "Good Bet", resp.Decisions[0].Name)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "operationTimeMillis")

	rec = do(t, s, http.MethodGet, "/internal/rating/app/app1/user/bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc store.RatingDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, int64(9955), doc.Rating)
	assert.Equal(t, "s1", doc.SessionID)

	rec = do(t, s, http.MethodGet, "/internal/rating/app/app1/user/alice/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"maxPositiveSumFinalDecisions":30`)
}

func TestCalcRejectsInvalidHand(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})

	h := headsUp()
	h.ApplicationID = ""
	h.Players[1].Cards = deck.MustParse("Ah", "7s")
	rec := postHand(t, s, h)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.GreaterOrEqual(t, len(resp.Violations), 2)

	rec = do(t, s, http.MethodPost, "/internal/rating/game/calc", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalcEngineFailure(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{err: rules.ErrInconsistent})
	rec := postHand(t, s, headsUp())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "inconsistent game state")
}

func TestCalcText(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})
	rec := do(t, s, http.MethodPost, "/internal/rating/game/calc/text", strings.NewReader(textHand))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CalcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.NewRatings, 2)

	rec = do(t, s, http.MethodPost, "/internal/rating/game/calc/text", strings.NewReader("Players: AhKd"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateHand(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})
	rec := do(t, s, http.MethodPost, "/internal/generate/game/hand", strings.NewReader(textHand))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var h hand.GameHand
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "app1", h.ApplicationID)
	assert.NotEmpty(t, h.SessionID)
	require.Len(t, h.Players, 2)
	assert.Equal(t, "alice", h.Players[0].UserID)
	assert.True(t, h.Players[0].Winner)
	assert.Len(t, h.RoundBets.PreFlop, 4)
}

func TestRatingNotFound(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/internal/rating/app/app1/user/nobody", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/internal/rating/app/app1/user/nobody/statistics", nil).Code)
}

func TestResetRating(t *testing.T) {
	s, st := newTestServer(t, stubExecutor{})

	rec := do(t, s, http.MethodPost, "/internal/rating/app/app1/user/carol/reset/rating/15000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc store.RatingDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, int64(15000), doc.Rating)
	assert.Equal(t, "initial-on-reset", doc.SessionID)

	stored, err := st.GetRatingDoc(context.Background(), "app1", "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), stored.Rating)

	rec = do(t, s, http.MethodPost, "/internal/rating/app/app1/user/carol/reset/rating/lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedBroadcastsCalcResults(t *testing.T) {
	s, _ := newTestServer(t, stubExecutor{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Feed().Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/internal/rating/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Feed().Len() == 1 }, time.Second, 10*time.Millisecond)

	rec := postHand(t, s, headsUp())
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg feedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "app1", msg.ApplicationID)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, map[string]int64{"alice": 60, "bob": -30}, msg.SumDecisions)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Feed().Len() == 0 }, time.Second, 10*time.Millisecond)
}
