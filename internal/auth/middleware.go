// internal/auth/middleware.go
//
// Request middleware: optional/required JWT auth, the anonymous player
// cookie, and PlayerID for handlers that serve guests and accounts alike.

package auth

import (
	"context"
	"net/http"
	"time"
)

// Principal is placed into request context by the auth middleware.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

// FromContext returns the authenticated principal, or nil for guests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxUserKey{}).(*Principal)
	return p
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, p)
}

// authenticate resolves the request's token to a live user.
func (s *Service) authenticate(r *http.Request) (*Principal, error) {
	tok := s.BearerOrCookie(r)
	if tok == "" {
		return nil, ErrInvalidToken
	}
	id, username, err := s.ParseToken(tok)
	if err != nil {
		return nil, err
	}
	// Ensure user still exists
	if _, err := s.FindUserByID(r.Context(), id); err != nil {
		return nil, ErrInvalidToken
	}
	return &Principal{ID: id, Username: username}, nil
}

// OptionalAuth decorates requests with the principal if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Service) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := s.authenticate(r); err == nil {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth enforces a valid JWT and injects the principal into the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.BearerOrCookie(r) == "" {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		p, err := s.authenticate(r)
		if err != nil {
			http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

const anonCookieName = "connections_anon"

// EnsureAnonID returns an existing anon cookie or sets a new one.
// Used to associate guest games with a stable identifier.
func (s *Service) EnsureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := GenID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: s.sameSite(),
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// PlayerID returns the user ID for signed-in players, else the anon cookie ID.
func (s *Service) PlayerID(w http.ResponseWriter, r *http.Request) (id string, signedIn bool) {
	if p := FromContext(r.Context()); p != nil {
		return p.ID, true
	}
	return s.EnsureAnonID(w, r), false
}
