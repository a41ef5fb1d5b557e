package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bsm/redislock"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	idempotencyLockTTL = 30 * time.Second
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a mutation repeated with the
// same Idempotency-Key, and rejects a repeat that arrives while the first is
// still running. Only successful responses are stored. With a nil client, or
// when redis is unreachable, requests pass straight through.
func Idempotency(rdb *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	var locker *redislock.Client
	if rdb != nil {
		locker = redislock.New(rdb)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if rdb == nil || key == "" || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := idempotencyKey(r, key)

			val, err := rdb.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var cached cachedResponse
				if err := json.Unmarshal(val, &cached); err == nil {
					replay(w, cached)
					return
				}

				slog.Warn("discarding unreadable idempotent response", "key", cacheKey)
			case !errors.Is(err, redis.Nil):
				slog.Warn("idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)

				return
			}

			lock, err := locker.Obtain(ctx, cacheKey+":lock", idempotencyLockTTL, nil)
			if errors.Is(err, redislock.ErrNotObtained) {
				http.Error(w, "a request with this Idempotency-Key is still in progress", http.StatusConflict)
				return
			}

			if err != nil {
				slog.Warn("failed to obtain idempotency lock", "error", err)
				next.ServeHTTP(w, r)

				return
			}

			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					slog.Warn("failed to release idempotency lock", "error", err)
				}
			}()

			var buf bytes.Buffer

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			if status < 200 || status >= 300 {
				return
			}

			payload, err := json.Marshal(cachedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        buf.Bytes(),
			})
			if err != nil {
				return
			}

			if err := rdb.Set(context.WithoutCancel(ctx), cacheKey, payload, ttl).Err(); err != nil {
				slog.Warn("failed to store idempotent response", "key", cacheKey, "error", err)
			}
		})
	}
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}

func idempotencyKey(r *http.Request, key string) string {
	owner := "anonymous"
	if sess, err := session.FromContext(r.Context()); err == nil {
		owner = sess.ID.String()
	}

	return fmt.Sprintf("idemp:%s:%s:%s:%s", owner, r.Method, r.URL.Path, key)
}

func replay(w http.ResponseWriter, c cachedResponse) {
	if c.ContentType != "" {
		w.Header().Set("Content-Type", c.ContentType)
	}

	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(c.Status)

	if _, err := w.Write(c.Body); err != nil {
		slog.Error("failed to replay response", "error", err)
	}
}
