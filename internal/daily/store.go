// internal/daily/store.go
//
// SQLite persistence for daily mode:
//   - daily_results: one finished attempt per player and date, read by the leaderboard.
//   - games.daily_date: links a player's live daily session to its date, so a
//     restart (with a durable session store) keeps the attempt.

package daily

import (
	"context"
	"database/sql"
	"errors"
)

// Result is one player's finished daily game.
type Result struct {
	UserID      string `json:"userId"`
	Date        string `json:"date"`
	PuzzleIndex int    `json:"puzzleIndex"`
	Won         bool   `json:"won"`
	Mistakes    int    `json:"mistakes"`
	Guesses     int    `json:"guesses"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// Store persists daily results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether userID has a result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a result. A second result for the same user and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, puzzle_index, won, mistakes, guesses, elapsed_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		r.UserID, r.Date, r.PuzzleIndex, r.Won, r.Mistakes, r.Guesses, r.ElapsedMs,
	)
	return err
}

// LatestGame returns the newest daily game playerID started on date, or ""
// when there is none. playerID may be an account or an anonymous ID.
func (s *Store) LatestGame(ctx context.Context, playerID, date string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM games
		 WHERE mode=? AND daily_date=? AND (user_id=? OR anonymous_id=?)
		 ORDER BY started_at DESC LIMIT 1`,
		Mode, date, playerID, playerID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// GameOwner returns the account that owns a game, falling back to the
// anonymous ID for guests. "" when the game has no row.
func (s *Store) GameOwner(ctx context.Context, gameID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(user_id, anonymous_id, '') FROM games WHERE id=?`, gameID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return owner, err
}

// LBRow is one leaderboard line.
type LBRow struct {
	UserID    string `json:"userId"`
	Won       bool   `json:"won"`
	Mistakes  int    `json:"mistakes"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard returns the top results for date: winners first, then fewer
// mistakes, then faster, then earlier.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, won, mistakes, elapsed_ms
		 FROM daily_results
		 WHERE date=?
		 ORDER BY won DESC, mistakes ASC, elapsed_ms ASC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Won, &r.Mistakes, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
