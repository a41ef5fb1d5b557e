package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrExpired      = errors.New("session expired")
	ErrUnauthorized = errors.New("session rejected by backend")
	ErrEmptyToken   = errors.New("token is required")
)

// Session is the operator's authenticated context. It is passed explicitly
// to every backend call instead of being read from ambient state.
type Session struct {
	ID          uuid.UUID
	Token       string
	Operator    string
	Permissions []string
	ExpiresAt   time.Time // zero for tokens without an exp claim
	CreatedAt   time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
}

// Open builds a session from a backend-issued token. JWT claims are read
// without verification; the backend remains the only authority on the token.
// Opaque tokens are accepted with no operator details.
func Open(token string, now time.Time) (*Session, error) {
	token = stripScheme(token)
	if token == "" {
		return nil, ErrEmptyToken
	}

	s := &Session{
		ID:        uuid.New(),
		Token:     token,
		CreatedAt: now.UTC(),
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		slog.Debug("opening session with opaque token", "error", err)
		return s, nil
	}

	s.Operator = c.operator()
	s.Permissions = c.Permissions

	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.UTC()
		if !s.ExpiresAt.After(now) {
			return nil, ErrExpired
		}
	}

	return s, nil
}

// stripScheme removes an optional, case-insensitive "Bearer " scheme.
// A bare scheme with no credentials yields "".
func stripScheme(token string) string {
	const scheme = "bearer"

	token = strings.TrimSpace(token)
	if strings.EqualFold(token, scheme) {
		return ""
	}

	if len(token) > len(scheme) && strings.EqualFold(token[:len(scheme)], scheme) && (token[len(scheme)] == ' ' || token[len(scheme)] == '\t') {
		return strings.TrimSpace(token[len(scheme):])
	}

	return token
}

func (c claims) operator() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}

// Bearer returns the token to send to the backend.
func (s *Session) Bearer() (string, error) {
	if s == nil || s.Token == "" {
		return "", ErrNoSession
	}

	if s.Expired(time.Now()) {
		return "", ErrExpired
	}

	return s.Token, nil
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(now)
}

// Can reports whether the token grants the permission. Tokens without a
// permissions claim grant nothing locally; the backend still decides.
func (s *Session) Can(permission string) bool {
	if s == nil {
		return false
	}

	for _, p := range s.Permissions {
		if strings.EqualFold(p, permission) {
			return true
		}
	}

	return false
}

// Store persists sessions between requests.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Manager owns the session lifecycle: opened at login, closed at logout or
// when the backend rejects the token.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

func (m *Manager) Login(ctx context.Context, token string) (*Session, error) {
	s, err := Open(token, m.now())
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return s, nil
}

// Get loads a live session. Expired sessions are removed and reported as absent.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			slog.Warn("failed to delete expired session", "session_id", id, "error", err)
		}

		return nil, ErrExpired
	}

	return s, nil
}

func (m *Manager) Logout(ctx context.Context, id uuid.UUID) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("deleting session: %w", err)
	}

	return nil
}

// Invalidate closes a session the backend answered 401 for.
func (m *Manager) Invalidate(ctx context.Context, s *Session) {
	if s == nil {
		return
	}

	slog.Info("closing session rejected by backend", "session_id", s.ID, "operator", s.Operator)

	if err := m.Logout(ctx, s.ID); err != nil {
		slog.Error("failed to close rejected session", "session_id", s.ID, "error", err)
	}
}

type ctxKey struct{}

// WithContext attaches the session to a request context.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session or ErrNoSession.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}

	return s, nil
}
