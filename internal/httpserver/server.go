// internal/httpserver/server.go
//
// HTTP server wiring for the Connections backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/metrics", "/puzzles".
//   - Game endpoints (optional auth): mounted under /game (routes_game.go).
//   - Daily endpoints (optional auth): mounted under /daily (routes_daily.go).
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine (routes_auth.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Sessions live in a store.Store; game history and stats live in SQLite.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/internal/auth"
	"github.com/robalobadob/connections/apps/go-server/internal/game"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzles"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Store        store.Store
	DB           *sql.DB
	Catalogue    *puzzles.Catalogue
	Auth         *auth.Service
	DailySalt    string
	ClientOrigin string
	Registry     *prometheus.Registry // nil → a fresh registry
}

// Server bundles router, session store, catalogue and DB handle.
type Server struct {
	r         *chi.Mux
	store     store.Store
	db        *sql.DB
	catalogue *puzzles.Catalogue
	auth      *auth.Service
	metrics   *metrics
	locks     *keyedLocks

	// finishHooks run once when a session transitions to finished.
	finishHooks []func(ctx context.Context, s *game.Session)
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		r:         chi.NewRouter(),
		store:     d.Store,
		db:        d.DB,
		catalogue: d.Catalogue,
		auth:      d.Auth,
		metrics:   newMetrics(reg),
		locks:     newKeyedLocks(),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))     // request-scoped logger
	s.r.Use(accessLog)                       // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFor(d.ClientOrigin))         // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "connections-go",
			"endpoints": []string{"/health", "/puzzles", "POST /game/new", "/game/{id}", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Handle("/metrics", s.metrics.handler(reg))

	s.r.Get("/puzzles", s.handleListPuzzles)

	// Game endpoints: OPTIONAL AUTH (guests can play)
	s.r.With(s.auth.OptionalAuth).Route("/game", s.mountGame)

	// Daily: OPTIONAL AUTH (guests can play; result persisted on finish)
	s.mountDaily(s.r.With(s.auth.OptionalAuth), d.DailySalt)

	// Auth + profile/stats
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	s.onFinish(s.recordFinish)
	return s
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// onFinish registers a hook that runs when a session finishes.
func (s *Server) onFinish(fn func(ctx context.Context, sess *game.Session)) {
	s.finishHooks = append(s.finishHooks, fn)
}

// handleListPuzzles returns the selector entries with star strings.
func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		puzzles.Entry
		Stars string `json:"stars"`
	}
	list := s.catalogue.List()
	out := make([]entry, 0, len(list))
	for _, e := range list {
		out = append(out, entry{Entry: e, Stars: puzzles.Stars(e.Difficulty)})
	}
	writeJSON(w, http.StatusOK, out)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one structured line per request.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("req_id", chimw.GetReqID(r.Context())).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// ------------------------------- helpers -----------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": code}.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// locale picks the summary language from ?lang= or Accept-Language.
func locale(r *http.Request) game.Locale {
	if l := r.URL.Query().Get("lang"); l != "" {
		return game.MatchLocale(l)
	}
	return game.MatchLocale(r.Header.Get("Accept-Language"))
}
