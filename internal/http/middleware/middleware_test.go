package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/http/middleware"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

func echoOperator(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromContext(r.Context())
		require.NoError(t, err)

		_, _ = w.Write([]byte(sess.Token))
	})
}

func TestRequireSession(t *testing.T) {
	manager := session.NewManager(session.NewMemoryStore())

	stored, err := manager.Login(context.Background(), "stored-token")
	require.NoError(t, err)

	handler := middleware.RequireSession(manager)(echoOperator(t))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "cookie",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: stored.ID.String()}) },
			wantStatus: http.StatusOK,
			wantBody:   "stored-token",
		},
		{
			name:       "header",
			setup:      func(r *http.Request) { r.Header.Set(middleware.SessionHeader, stored.ID.String()) },
			wantStatus: http.StatusOK,
			wantBody:   "stored-token",
		},
		{
			name:       "bearer token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer direct-token") },
			wantStatus: http.StatusOK,
			wantBody:   "direct-token",
		},
		{
			name:       "bearer scheme is case insensitive",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer direct-token") },
			wantStatus: http.StatusOK,
			wantBody:   "direct-token",
		},
		{
			name:       "empty bearer",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bare bearer scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing",
			setup:      func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed id",
			setup:      func(r *http.Request) { r.Header.Set(middleware.SessionHeader, "not-a-uuid") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown id",
			setup:      func(r *http.Request) { r.Header.Set(middleware.SessionHeader, "6f1c1ad4-2b1f-4a53-9c41-0f5b8f3f2d10") },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiters := middleware.NewLimiters(0.001, 2)
	handler := middleware.RateLimit(limiters)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5000"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5002"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:5000"))
}

func TestRateLimit_KeysBySession(t *testing.T) {
	limiters := middleware.NewLimiters(0.001, 1)
	handler := middleware.RateLimit(limiters)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first, err := session.Open("a", time.Now())
	require.NoError(t, err)

	second, err := session.Open("b", time.Now())
	require.NoError(t, err)

	for _, sess := range []*session.Session{first, second} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(session.WithContext(req.Context(), sess))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestIdempotency_PassesThrough(t *testing.T) {
	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer unreachable.Close()

	tests := []struct {
		name   string
		rdb    *redis.Client
		method string
		key    string
	}{
		{name: "no redis", rdb: nil, method: http.MethodPost, key: "k-1"},
		{name: "no key", rdb: unreachable, method: http.MethodPost},
		{name: "read only", rdb: unreachable, method: http.MethodGet, key: "k-1"},
		{name: "redis down", rdb: unreachable, method: http.MethodPost, key: "k-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := middleware.Idempotency(tt.rdb, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++

				w.WriteHeader(http.StatusCreated)
			}))

			for range 2 {
				req := httptest.NewRequest(tt.method, "/api/v1/payroll/generate", nil)
				if tt.key != "" {
					req.Header.Set(middleware.IdempotencyHeader, tt.key)
				}

				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				assert.Equal(t, http.StatusCreated, rec.Code)
			}

			assert.Equal(t, 2, calls)
		})
	}
}
