// internal/httpserver/routes_game.go
//
// HTTP routes for playing a game. Every player action maps 1:1 onto a
// game.Action and returns the fresh snapshot:
//   - POST /game/new            → start a session for a catalogue puzzle
//   - GET  /game/{id}           → current snapshot
//   - POST /game/{id}/select    → toggle one tile {"item": "..."}
//   - POST /game/{id}/deselect  → clear the selection
//   - POST /game/{id}/shuffle   → reshuffle the grid
//   - POST /game/{id}/submit    → submit the 4 selected tiles
//   - POST /game/{id}/action    → any action {"kind": "...", "item": "..."}
//   - GET  /game/{id}/summary   → results once finished (409 while playing)

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/internal/auth"
	"github.com/robalobadob/connections/apps/go-server/internal/daily"
	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

const (
	modeNormal = "normal"
	modeDaily  = daily.Mode
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/new", s.handleNewGame)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetGame)
		r.Get("/summary", s.handleSummary)
		r.Post("/select", s.handleSelect)
		r.Post("/deselect", s.actionHandler(game.ActionDeselectAll))
		r.Post("/shuffle", s.actionHandler(game.ActionShuffle))
		r.Post("/submit", s.actionHandler(game.ActionSubmit))
		r.Post("/action", s.handleAction)
	})
}

// gameRes is the body of every game endpoint.
type gameRes struct {
	Game       game.Snapshot    `json:"game"`
	Evaluation *game.Evaluation `json:"evaluation,omitempty"` // submit only
}

// newGameReq is the payload for POST /game/new.
type newGameReq struct {
	Puzzle int `json:"puzzle"` // catalogue index
}

// handleNewGame creates a session for the requested puzzle and records an
// owner row (user_id or anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	p, ok := s.catalogue.Get(req.Puzzle)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_puzzle")
		return
	}
	playerID, signedIn := s.auth.PlayerID(w, r)
	sess := game.New(p, nil)
	sess.Mode, sess.Owner, sess.PuzzleIndex = modeNormal, playerID, req.Puzzle
	if err := s.startGame(r, sess, signedIn); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusOK, gameRes{Game: sess.Snapshot(locale(r))})
}

// startGame stores a new session and records its history row under
// sess.Owner. Mode, Owner and (for daily games) DailyDate must be set.
func (s *Server) startGame(r *http.Request, sess *game.Session, signedIn bool) error {
	if err := s.store.Save(r.Context(), sess); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save game")
		return err
	}
	s.metrics.gameStarted(sess.Mode)

	// History row is best effort; the game is playable without it.
	ownerCol := "anonymous_id"
	if signedIn {
		ownerCol = "user_id"
	}
	var dailyDate *string
	if sess.DailyDate != "" {
		dailyDate = &sess.DailyDate
	}
	_, err := s.db.ExecContext(r.Context(),
		`INSERT INTO games (id, `+ownerCol+`, puzzle_name, mode, daily_date, started_at, status)
		 VALUES (?,?,?,?,?,?,?)`,
		sess.ID, sess.Owner, sess.Puzzle.Name, sess.Mode, dailyDate, sess.StartedAt.Format(time.RFC3339), game.StatePlaying)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", sess.ID).Msg("insert game row")
	}
	return nil
}

// load reads a session under its lock, so a read never observes an action
// half applied.
func (s *Server) load(ctx context.Context, id string) (*game.Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()
	return s.store.Get(ctx, id)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameRes{Game: sess.Snapshot(locale(r))})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if !sess.Finished {
		writeError(w, http.StatusConflict, "not_finished")
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary(locale(r)))
}

// selectReq is the payload for POST /game/{id}/select.
type selectReq struct {
	Item string `json:"item"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.act(w, r, game.Action{Kind: game.ActionSelect, Item: req.Item})
}

// actionReq is the payload for POST /game/{id}/action.
type actionReq struct {
	Kind string `json:"kind"`
	Item string `json:"item"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	kind, err := game.ParseActionKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_action")
		return
	}
	s.act(w, r, game.Action{Kind: kind, Item: req.Item})
}

// actionHandler binds a body-less action kind to a handler.
func (s *Server) actionHandler(kind game.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.act(w, r, game.Action{Kind: kind})
	}
}

// act loads the session, applies a, saves it and responds with the snapshot.
// Load-apply-save runs under the session's lock.
func (s *Server) act(w http.ResponseWriter, r *http.Request, a game.Action) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.lock(id)
	defer unlock()

	ctx := r.Context()
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	wasFinished := sess.Finished
	ev := sess.Dispatch(a, nil)

	if err := s.store.Save(ctx, sess); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("gameId", id).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	// The move is saved; history and results must be written even if the
	// client has gone away or the request timed out.
	bg := context.WithoutCancel(ctx)
	if ev != nil {
		s.metrics.guessed(ev)
		if ev.Outcome == game.OutcomeMatch || ev.Outcome == game.OutcomeMiss {
			s.recordGuess(bg, sess)
		}
		hlog.FromRequest(r).Debug().
			Str("gameId", id).
			Str("outcome", string(ev.Outcome)).
			Bool("oneAway", ev.OneAway).
			Int("mistakesRemaining", sess.MistakesRemaining).
			Msg("guess")
	}
	if !wasFinished && sess.Finished {
		for _, fn := range s.finishHooks {
			fn(bg, sess)
		}
	}
	writeJSON(w, http.StatusOK, gameRes{Game: sess.Snapshot(locale(r)), Evaluation: ev})
}

// recordGuess updates the history counters (best effort).
func (s *Server) recordGuess(ctx context.Context, sess *game.Session) {
	if _, err := s.db.ExecContext(ctx, `UPDATE games SET guesses=?, mistakes=? WHERE id=?`,
		len(sess.Guesses), sess.MistakesMade(), sess.ID); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("update guesses")
	}
}

// recordFinish closes the history row and bumps the owner's stats in one tx.
func (s *Server) recordFinish(ctx context.Context, sess *game.Session) {
	s.metrics.gameFinished(sess)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("finish game: begin")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE games SET status=?, finished_at=? WHERE id=?`,
		sess.State(), time.Now().UTC().Format(time.RFC3339), sess.ID); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("finish game")
		return
	}
	var userID *string
	if err := tx.QueryRowContext(ctx, `SELECT user_id FROM games WHERE id=?`, sess.ID).Scan(&userID); err == nil && userID != nil {
		if err := auth.BumpStats(ctx, tx, *userID, sess.Won); err != nil {
			log.Warn().Err(err).Str("user", *userID).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("finish game: commit")
	}
}

// storeError maps store failures onto HTTP responses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("load game")
	writeError(w, http.StatusInternalServerError, "store_error")
}
