package daily_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/connections/apps/go-server/internal/daily"
	"github.com/robalobadob/connections/apps/go-server/internal/db"
)

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2026-03-01", daily.DateKey(time.Date(2026, 3, 2, 5, 0, 0, 0, loc)))
}

func TestPuzzleIndex_Deterministic(t *testing.T) {
	day := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	later := day.Add(10 * time.Hour)

	a := daily.PuzzleIndex(day, "salt", 7)
	assert.Equal(t, a, daily.PuzzleIndex(later, "salt", 7))
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 7)
	assert.Equal(t, 0, daily.PuzzleIndex(day, "salt", 0))
}

func TestStore_ResultsAndLeaderboard(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "daily.db"))
	require.NoError(t, err)
	defer conn.Close()

	st := daily.NewStore(conn)
	ctx := context.Background()
	date := "2026-10-15"

	played, err := st.AlreadyPlayed(ctx, "u1", date)
	require.NoError(t, err)
	assert.False(t, played)

	results := []daily.Result{
		{UserID: "u1", Date: date, Won: true, Mistakes: 2, Guesses: 6, ElapsedMs: 1000},
		{UserID: "u2", Date: date, Won: false, Mistakes: 4, Guesses: 5, ElapsedMs: 500},
		{UserID: "u3", Date: date, Won: true, Mistakes: 0, Guesses: 4, ElapsedMs: 9000},
		{UserID: "u4", Date: date, Won: true, Mistakes: 2, Guesses: 6, ElapsedMs: 800},
	}
	for _, r := range results {
		require.NoError(t, st.InsertResult(ctx, r))
	}
	// Duplicate is ignored.
	require.NoError(t, st.InsertResult(ctx, daily.Result{UserID: "u1", Date: date, Won: true}))

	played, err = st.AlreadyPlayed(ctx, "u1", date)
	require.NoError(t, err)
	assert.True(t, played)

	rows, err := st.Leaderboard(ctx, date, 0)
	require.NoError(t, err)
	var order []string
	for _, r := range rows {
		order = append(order, r.UserID)
	}
	assert.Equal(t, []string{"u3", "u4", "u1", "u2"}, order)
}

func TestStore_LatestGameAndOwner(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "daily.db"))
	require.NoError(t, err)
	defer conn.Close()

	st := daily.NewStore(conn)
	ctx := context.Background()
	date := "2026-10-15"

	id, err := st.LatestGame(ctx, "anon-1", date)
	require.NoError(t, err)
	assert.Empty(t, id)

	insert := func(id, anon, mode, day, started string) {
		_, err := conn.Exec(`INSERT INTO games (id, anonymous_id, puzzle_name, mode, daily_date, started_at)
			VALUES (?,?,?,?,?,?)`, id, anon, "Letters", mode, day, started)
		require.NoError(t, err)
	}
	insert("g1", "anon-1", daily.Mode, date, "2026-10-15T08:00:00Z")
	insert("g2", "anon-1", daily.Mode, date, "2026-10-15T09:00:00Z")
	insert("g3", "anon-1", "normal", "", "2026-10-15T10:00:00Z")
	insert("g4", "anon-1", daily.Mode, "2026-10-14", "2026-10-14T10:00:00Z")

	id, err = st.LatestGame(ctx, "anon-1", date)
	require.NoError(t, err)
	assert.Equal(t, "g2", id)

	owner, err := st.GameOwner(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, "anon-1", owner)

	// Once claimed by an account, the account owns it and finds it.
	_, err = conn.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1','player','x','now')`)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE games SET user_id='u1', anonymous_id=NULL WHERE anonymous_id='anon-1'`)
	require.NoError(t, err)

	owner, err = st.GameOwner(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)
	id, err = st.LatestGame(ctx, "u1", date)
	require.NoError(t, err)
	assert.Equal(t, "g2", id)

	owner, err = st.GameOwner(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, owner)
}
