package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/http/respond"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

const (
	SessionCookie = "haulbook_session"
	SessionHeader = "X-Session-ID"
)

type SessionSource interface {
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
}

// RequireSession resolves the caller's session and attaches it to the request
// context. A stored session is looked up by cookie or X-Session-ID; a bearer
// token opens a session that lives for the request only.
func RequireSession(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := resolve(r, src)
			if err != nil {
				respond.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithContext(r.Context(), sess)))
		})
	}
}

func resolve(r *http.Request, src SessionSource) (*session.Session, error) {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); len(auth) >= len("Bearer") && strings.EqualFold(auth[:len("Bearer")], "Bearer") {
		return session.Open(auth, time.Now())
	}

	raw := r.Header.Get(SessionHeader)
	if c, err := r.Cookie(SessionCookie); err == nil && raw == "" {
		raw = c.Value
	}

	if raw == "" {
		return nil, session.ErrNoSession
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, session.ErrNoSession
	}

	return src.Get(r.Context(), id)
}
