// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Puzzle" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start today's game (creates or reuses session)
//   - GET  /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Daily games are played through the regular /game/{id}/... endpoints.
// Each player gets one attempt per day: the session carries its date and
// owner, and the games row records daily_date, so nothing lives only in
// process memory. The result is persisted when the game finishes, won or
// lost. Puzzle selection is deterministic per date + salt.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/internal/daily"
	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv   *Server
	store *daily.Store
	salt  string
	now   func() time.Time
}

// mountDaily registers all /daily routes and the finish hook that records results.
func (s *Server) mountDaily(r chi.Router, salt string) {
	dd := &dailyServer{
		srv:   s,
		store: daily.NewStore(s.db),
		salt:  salt,
		now:   time.Now,
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
	s.onFinish(dd.recordResult)
}

// today returns today's date key and puzzle index.
func (d *dailyServer) today() (date string, idx int) {
	now := d.now().UTC()
	return daily.DateKey(now), daily.PuzzleIndex(now, d.salt, d.srv.catalogue.Len())
}

// newRes is returned by /daily/new.
type newRes struct {
	GameID string         `json:"gameId"`
	Date   string         `json:"date"`
	Played bool           `json:"played"`
	Game   *game.Snapshot `json:"game,omitempty"`
}

// handleNew creates or reuses today's session.
//   - Player already has a result for today → Played=true.
//   - Player has today's game still in the store → reuse it (Played=true
//     once it has finished).
//   - Otherwise start one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid, signedIn := d.srv.auth.PlayerID(w, r)
	date, idx := d.today()
	lg := hlog.FromRequest(r).With().Str("player", uid).Str("date", date).Logger()

	played, err := d.store.AlreadyPlayed(r.Context(), uid, date)
	if err != nil {
		lg.Warn().Err(err).Msg("daily already played check")
	}
	if played {
		writeJSON(w, http.StatusOK, newRes{Date: date, Played: true})
		return
	}

	gameID, err := d.store.LatestGame(r.Context(), uid, date)
	if err != nil {
		lg.Warn().Err(err).Msg("daily game lookup")
	}
	if gameID != "" {
		sess, err := d.srv.load(r.Context(), gameID)
		switch {
		case err == nil && sess.Finished:
			writeJSON(w, http.StatusOK, newRes{GameID: sess.ID, Date: date, Played: true})
			return
		case err == nil:
			snap := sess.Snapshot(locale(r))
			writeJSON(w, http.StatusOK, newRes{GameID: sess.ID, Date: date, Game: &snap})
			return
		case !errors.Is(err, store.ErrNotFound):
			lg.Warn().Err(err).Str("gameId", gameID).Msg("load daily game")
		}
		// Session expired from the store; start over.
	}

	p, ok := d.srv.catalogue.Get(idx)
	if !ok {
		writeError(w, http.StatusInternalServerError, "no_puzzles")
		return
	}
	sess := game.New(p, nil)
	sess.Mode, sess.Owner, sess.DailyDate, sess.PuzzleIndex = modeDaily, uid, date, idx
	if err := d.srv.startGame(r, sess, signedIn); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	snap := sess.Snapshot(locale(r))
	writeJSON(w, http.StatusOK, newRes{GameID: sess.ID, Date: date, Game: &snap})
}

// recordResult persists the result of a finished daily game. The result
// belongs to whoever owns the games row now, so a guest who signed in
// mid-game is credited on their account.
func (d *dailyServer) recordResult(ctx context.Context, sess *game.Session) {
	if sess.Mode != modeDaily || sess.DailyDate == "" {
		return
	}
	owner, err := d.store.GameOwner(ctx, sess.ID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("daily game owner")
	}
	if owner == "" {
		owner = sess.Owner
	}

	err = d.store.InsertResult(ctx, daily.Result{
		UserID:      owner,
		Date:        sess.DailyDate,
		PuzzleIndex: sess.PuzzleIndex,
		Won:         sess.Won,
		Mistakes:    sess.MistakesMade(),
		Guesses:     len(sess.Guesses),
		ElapsedMs:   d.now().Sub(sess.StartedAt).Milliseconds(),
	})
	if err != nil {
		log.Warn().Err(err).Str("user", owner).Str("date", sess.DailyDate).Msg("insert daily result")
	}
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = d.today()
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
