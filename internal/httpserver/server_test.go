package httpserver_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/connections/apps/go-server/internal/auth"
	"github.com/robalobadob/connections/apps/go-server/internal/db"
	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/httpserver"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzles"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

const catalogueJSON = `[{
  "puzzle_name": "Letters",
  "puzzle_difficulty": 2,
  "groups": [
    {"category": "A", "difficulty": 1, "items": ["w","x","y","z"]},
    {"category": "B", "difficulty": 2, "items": ["a","b","c","d"]},
    {"category": "C", "difficulty": 3, "items": ["e","f","g","h"]},
    {"category": "D", "difficulty": 4, "items": ["i","j","k","l"]}
  ]
}]`

type gameRes struct {
	Game       game.Snapshot    `json:"game"`
	Evaluation *game.Evaluation `json:"evaluation"`
}

type testServer struct {
	t      *testing.T
	h      http.Handler
	cookie []*http.Cookie
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, openTestDB(t), store.NewMemoryStore())
}

// newTestServerWith builds a server on existing state. Two servers built on
// the same DB and store behave like one process before and after a restart.
func newTestServerWith(t *testing.T, conn *sql.DB, st store.Store) *testServer {
	t.Helper()
	cat, err := puzzles.Parse([]byte(catalogueJSON), "json")
	require.NoError(t, err)

	srv := httpserver.New(httpserver.Deps{
		Store:     st,
		DB:        conn,
		Catalogue: cat,
		Auth:      auth.NewService(conn, auth.Options{Secret: "test"}),
		DailySalt: "salt",
	})
	return &testServer{t: t, h: srv.Router()}
}

// do sends a request, keeping cookies between calls like a browser would.
func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	return ts.doContext(context.Background(), method, path, body)
}

func (ts *testServer) doContext(ctx context.Context, method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequestWithContext(ctx, method, path, &buf)
	for _, c := range ts.cookie {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		ts.setCookie(c)
	}
	return rec
}

func (ts *testServer) setCookie(c *http.Cookie) {
	for i, old := range ts.cookie {
		if old.Name == c.Name {
			ts.cookie[i] = c
			return
		}
	}
	ts.cookie = append(ts.cookie, c)
}

func (ts *testServer) game(method, path string, body any) gameRes {
	ts.t.Helper()
	rec := ts.do(method, path, body)
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	var res gameRes
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (ts *testServer) selectItems(id string, items ...string) {
	for _, it := range items {
		ts.game(http.MethodPost, "/game/"+id+"/select", map[string]string{"item": it})
	}
}

func TestHealthAndPuzzles(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/puzzles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"index":0,"name":"Letters","difficulty":2,"stars":"★★☆☆☆"}]`, rec.Body.String())
}

func TestGameFlow(t *testing.T) {
	ts := newTestServer(t)

	res := ts.game(http.MethodPost, "/game/new", map[string]int{"puzzle": 0})
	id := res.Game.GameID
	require.NotEmpty(t, id)
	assert.Len(t, res.Game.Grid, 16)
	assert.Equal(t, game.MaxMistakes, res.Game.MistakesRemaining)

	// Correct group.
	ts.selectItems(id, "w", "x", "y", "z")
	res = ts.game(http.MethodPost, "/game/"+id+"/submit", nil)
	require.NotNil(t, res.Evaluation)
	assert.Equal(t, game.OutcomeMatch, res.Evaluation.Outcome)
	assert.Len(t, res.Game.Grid, 12)
	require.Len(t, res.Game.Completed, 1)
	assert.Equal(t, "A", res.Game.Completed[0].Category)

	// One away.
	ts.selectItems(id, "a", "b", "c", "e")
	res = ts.game(http.MethodPost, "/game/"+id+"/submit", nil)
	assert.Equal(t, game.OutcomeMiss, res.Evaluation.Outcome)
	assert.True(t, res.Game.OneAway)
	assert.Equal(t, 3, res.Game.MistakesRemaining)

	// Same guess again is free.
	res = ts.game(http.MethodPost, "/game/"+id+"/action", map[string]string{"kind": "submit"})
	assert.Equal(t, game.OutcomeAlreadyGuessed, res.Evaluation.Outcome)
	assert.True(t, res.Game.AlreadyGuessed)
	assert.Equal(t, 3, res.Game.MistakesRemaining)

	// Summary is not available mid-game.
	rec := ts.do(http.MethodGet, "/game/"+id+"/summary", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Finish the game.
	ts.game(http.MethodPost, "/game/"+id+"/deselect", nil)
	for _, items := range [][]string{{"a", "b", "c", "d"}, {"e", "f", "g", "h"}, {"i", "j", "k", "l"}} {
		ts.selectItems(id, items...)
		ts.game(http.MethodPost, "/game/"+id+"/submit", nil)
	}
	res = ts.game(http.MethodGet, "/game/"+id, nil)
	assert.Equal(t, game.StateWon, res.Game.State)
	require.NotNil(t, res.Game.Summary)
	assert.Equal(t, "Incredible!", res.Game.Summary.Title)

	req := httptest.NewRequest(http.MethodGet, "/game/"+id+"/summary", nil)
	req.Header.Set("Accept-Language", "nb-NO")
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum game.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "Utrolig!", sum.Title)
	assert.Len(t, sum.Lines, 5)
}

func TestShuffleKeepsItems(t *testing.T) {
	ts := newTestServer(t)
	res := ts.game(http.MethodPost, "/game/new", nil)
	id := res.Game.GameID

	before := map[string]bool{}
	for _, tile := range res.Game.Grid {
		before[tile.Item] = true
	}
	res = ts.game(http.MethodPost, "/game/"+id+"/shuffle", nil)
	require.Len(t, res.Game.Grid, 16)
	for _, tile := range res.Game.Grid {
		assert.True(t, before[tile.Item])
	}
}

func TestGameErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/game/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/game/new", map[string]int{"puzzle": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := ts.game(http.MethodPost, "/game/new", nil).Game.GameID
	rec = ts.do(http.MethodPost, "/game/"+id+"/action", map[string]string{"kind": "undo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/game/"+id+"/select", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountStatsAndHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/signup", map[string]string{"username": "player_one", "password": "hunter2hunter2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/auth/signup", map[string]string{"username": "PLAYER_ONE", "password": "hunter2hunter2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	id := ts.game(http.MethodPost, "/game/new", nil).Game.GameID
	for _, items := range [][]string{{"w", "x", "y", "z"}, {"a", "b", "c", "d"}, {"e", "f", "g", "h"}, {"i", "j", "k", "l"}} {
		ts.selectItems(id, items...)
		ts.game(http.MethodPost, "/game/"+id+"/submit", nil)
	}

	rec = ts.do(http.MethodGet, "/stats/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+mustUserID(t, ts)+`","gamesPlayed":1,"wins":1,"streak":1}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/games/mine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "won", rows[0]["status"])
	assert.Equal(t, float64(4), rows[0]["guesses"])

	ts.do(http.MethodPost, "/auth/logout", nil)
	rec = ts.do(http.MethodGet, "/stats/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func mustUserID(t *testing.T, ts *testServer) string {
	t.Helper()
	rec := ts.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	return me.ID
}

func TestDaily(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/daily/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var first struct {
		GameID string `json:"gameId"`
		Date   string `json:"date"`
		Played bool   `json:"played"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first.GameID)
	assert.False(t, first.Played)

	// Asking again returns the same live game.
	rec = ts.do(http.MethodPost, "/daily/new", nil)
	var again struct {
		GameID string `json:"gameId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, first.GameID, again.GameID)

	// Lose it.
	id := first.GameID
	for _, items := range [][]string{{"a", "b", "e", "f"}, {"a", "b", "i", "j"}, {"e", "f", "i", "j"}, {"a", "e", "i", "w"}} {
		ts.game(http.MethodPost, "/game/"+id+"/deselect", nil)
		ts.selectItems(id, items...)
		ts.game(http.MethodPost, "/game/"+id+"/submit", nil)
	}
	res := ts.game(http.MethodGet, "/game/"+id, nil)
	assert.Equal(t, game.StateLost, res.Game.State)
	assert.Len(t, res.Game.Completed, 4)

	rec = ts.do(http.MethodPost, "/daily/new", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.Played)

	rec = ts.do(http.MethodGet, "/daily/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lb struct {
		Top []struct {
			Won      bool `json:"won"`
			Mistakes int  `json:"mistakes"`
		} `json:"top"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lb))
	require.Len(t, lb.Top, 1)
	assert.False(t, lb.Top[0].Won)
	assert.Equal(t, 4, lb.Top[0].Mistakes)

	rec = ts.do(http.MethodGet, "/daily/leaderboard?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.game(http.MethodPost, "/game/new", nil)

	rec := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `connections_games_started_total{mode="normal"} 1`)
}

type dailyRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

func (ts *testServer) daily() dailyRes {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/daily/new", nil)
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	var res dailyRes
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

type leaderboardRow struct {
	UserID   string `json:"userId"`
	Won      bool   `json:"won"`
	Mistakes int    `json:"mistakes"`
}

func (ts *testServer) leaderboard() []leaderboardRow {
	ts.t.Helper()
	rec := ts.do(http.MethodGet, "/daily/leaderboard", nil)
	require.Equal(ts.t, http.StatusOK, rec.Code)
	var lb struct {
		Top []leaderboardRow `json:"top"`
	}
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &lb))
	return lb.Top
}

func (ts *testServer) signup(username string) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/auth/signup", map[string]string{"username": username, "password": "hunter2hunter2"})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (ts *testServer) stats() string {
	ts.t.Helper()
	rec := ts.do(http.MethodGet, "/stats/me", nil)
	require.Equal(ts.t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func (ts *testServer) myGames() map[string]map[string]any {
	ts.t.Helper()
	rec := ts.do(http.MethodGet, "/games/mine", nil)
	require.Equal(ts.t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &rows))
	byID := map[string]map[string]any{}
	for _, row := range rows {
		byID[row["id"].(string)] = row
	}
	return byID
}

var (
	solution = [][]string{{"w", "x", "y", "z"}, {"a", "b", "c", "d"}, {"e", "f", "g", "h"}, {"i", "j", "k", "l"}}
	misses   = [][]string{{"a", "b", "e", "f"}, {"a", "b", "i", "j"}, {"e", "f", "i", "j"}, {"a", "e", "i", "w"}}
)

func (ts *testServer) guess(id string, groups ...[]string) gameRes {
	ts.t.Helper()
	var res gameRes
	for _, items := range groups {
		ts.game(http.MethodPost, "/game/"+id+"/deselect", nil)
		ts.selectItems(id, items...)
		res = ts.game(http.MethodPost, "/game/"+id+"/submit", nil)
	}
	return res
}

func TestLostGame(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("loser")
	me := mustUserID(t, ts)

	// A win first, so the loss has a streak to reset.
	won := ts.game(http.MethodPost, "/game/new", nil).Game.GameID
	ts.guess(won, solution...)

	lost := ts.daily().GameID
	require.NotEmpty(t, lost)
	res := ts.guess(lost, misses...)
	assert.Equal(t, game.OutcomeMiss, res.Evaluation.Outcome)

	res = ts.game(http.MethodGet, "/game/"+lost, nil)
	assert.Equal(t, game.StateLost, res.Game.State)
	assert.Zero(t, res.Game.MistakesRemaining)
	assert.Len(t, res.Game.Completed, 4)
	require.NotNil(t, res.Game.Summary)
	assert.False(t, res.Game.Summary.Won)
	assert.Equal(t, "Tough luck...", res.Game.Summary.Title)
	assert.Equal(t, 4, res.Game.Summary.MistakesMade)

	rec := ts.do(http.MethodGet, "/game/"+lost+"/summary", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Acting on a finished game changes nothing.
	res = ts.game(http.MethodPost, "/game/"+lost+"/select", map[string]string{"item": "a"})
	assert.Equal(t, game.StateLost, res.Game.State)

	assert.JSONEq(t, `{"id":"`+me+`","gamesPlayed":2,"wins":1,"streak":0}`, ts.stats())

	games := ts.myGames()
	require.Len(t, games, 2)
	assert.Equal(t, "won", games[won]["status"])
	assert.Equal(t, "lost", games[lost]["status"])
	assert.Equal(t, "daily", games[lost]["mode"])
	assert.Equal(t, float64(4), games[lost]["guesses"])
	assert.Equal(t, float64(4), games[lost]["mistakes"])
	assert.NotEmpty(t, games[lost]["finishedAt"])

	top := ts.leaderboard()
	require.Len(t, top, 1)
	assert.Equal(t, me, top[0].UserID)
	assert.False(t, top[0].Won)
	assert.Equal(t, 4, top[0].Mistakes)

	assert.True(t, ts.daily().Played)
}

func TestConcurrentReadsAndActions(t *testing.T) {
	ts := newTestServer(t)
	id := ts.game(http.MethodPost, "/game/new", nil).Game.GameID

	var wg sync.WaitGroup
	send := func(method, path, body string, want int) {
		defer wg.Done()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		ts.h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}
	for i := 0; i < 50; i++ {
		wg.Add(4)
		go send(http.MethodPost, "/game/"+id+"/shuffle", "", http.StatusOK)
		go send(http.MethodPost, "/game/"+id+"/select", `{"item":"a"}`, http.StatusOK)
		go send(http.MethodGet, "/game/"+id, "", http.StatusOK)
		go send(http.MethodGet, "/game/"+id+"/summary", "", http.StatusConflict)
	}
	wg.Wait()

	// Fifty serialised toggles of one tile leave it unselected.
	res := ts.game(http.MethodGet, "/game/"+id, nil)
	require.Len(t, res.Game.Grid, 16)
	for _, tile := range res.Game.Grid {
		assert.False(t, tile.Selected, tile.Item)
	}
}

func TestDailySurvivesRestart(t *testing.T) {
	conn := openTestDB(t)
	mr := miniredis.RunT(t)
	redisStore := func() store.Store {
		client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return store.NewRedisStoreFromClient(client)
	}

	before := newTestServerWith(t, conn, redisStore())
	first := before.daily()
	require.NotEmpty(t, first.GameID)
	before.guess(first.GameID, solution[0])

	// A fresh process on the same Redis and DB, same browser.
	after := newTestServerWith(t, conn, redisStore())
	after.cookie = before.cookie

	again := after.daily()
	assert.Equal(t, first.GameID, again.GameID, "the attempt in progress is reused")
	assert.False(t, again.Played)

	res := after.guess(first.GameID, solution[1:]...)
	assert.Equal(t, game.StateWon, res.Game.State)

	assert.True(t, after.daily().Played)
	top := after.leaderboard()
	require.Len(t, top, 1)
	assert.True(t, top[0].Won)
	assert.Zero(t, top[0].Mistakes)
}

func TestFinishRecordedWhenRequestCancelled(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("quitter")
	me := mustUserID(t, ts)

	id := ts.daily().GameID
	ts.guess(id, solution[:3]...)
	ts.game(http.MethodPost, "/game/"+id+"/deselect", nil)
	ts.selectItems(id, solution[3]...)

	// The client disconnects as the winning guess is processed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := ts.doContext(ctx, http.MethodPost, "/game/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{"id":"`+me+`","gamesPlayed":1,"wins":1,"streak":1}`, ts.stats())
	row := ts.myGames()[id]
	require.NotNil(t, row)
	assert.Equal(t, "won", row["status"])
	assert.Equal(t, float64(4), row["guesses"])

	top := ts.leaderboard()
	require.Len(t, top, 1)
	assert.Equal(t, me, top[0].UserID)
	assert.True(t, top[0].Won)
}

func TestDailyNewLogsLookupFailures(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	conn := openTestDB(t)
	ts := newTestServerWith(t, conn, store.NewMemoryStore())
	require.NoError(t, conn.Close())

	// The game is still playable; the failed checks are logged, not hidden.
	res := ts.daily()
	assert.NotEmpty(t, res.GameID)
	assert.False(t, res.Played)
	assert.Contains(t, buf.String(), "daily already played check")
	assert.Contains(t, buf.String(), "daily game lookup")
}
