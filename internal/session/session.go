// Package session holds the bearer credential of each console user and the
// identity derived from it.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "donation-console/pkg/errors"
)

// Session is the credential of one logged-in console user. Subject is the
// user's CI, sent as the acting user on mutating calls.
type Session struct {
	Token     string
	Subject   string
	IsAdmin   bool
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry. A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ExtractSubject reads the sub claim without verifying the signature; the
// backend re-validates the token on every call.
func ExtractSubject(token string) (string, *time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", nil, fmt.Errorf("%w: %v", appErrors.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", nil, fmt.Errorf("%w: missing subject claim", appErrors.ErrInvalidToken)
	}

	var exp *time.Time
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		exp = &t
	}
	return claims.Subject, exp, nil
}

// New builds a session from a bearer token. When expiresAt is zero the
// token's own exp claim is used.
func New(token string, expiresAt time.Time, isAdmin bool) (*Session, error) {
	subject, exp, err := ExtractSubject(token)
	if err != nil {
		return nil, err
	}
	if expiresAt.IsZero() && exp != nil {
		expiresAt = *exp
	}

	return &Session{
		Token:     token,
		Subject:   subject,
		IsAdmin:   isAdmin,
		ExpiresAt: expiresAt,
	}, nil
}

// Registry owns the lifecycle of every session the console knows about.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a session for token, replacing any previous one.
func (r *Registry) Create(token string, expiresAt time.Time, isAdmin bool) (*Session, error) {
	s, err := New(token, expiresAt, isAdmin)
	if err != nil {
		return nil, err
	}
	if s.Expired(r.now()) {
		return nil, appErrors.ErrTokenExpired
	}

	r.mu.Lock()
	r.sessions[token] = s
	r.mu.Unlock()

	return s, nil
}

// Get returns the live session for token. Expired sessions are cleared.
func (r *Registry) Get(token string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()

	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	if s.Expired(r.now()) {
		r.Clear(token)
		return nil, appErrors.ErrTokenExpired
	}
	return s, nil
}

// Clear forgets the session for token. Clearing an unknown token is a no-op.
func (r *Registry) Clear(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// Len reports the number of live or not-yet-evicted sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
