package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/MrJamesThe3rd/haulbook/internal/backend"
	"github.com/MrJamesThe3rd/haulbook/internal/config"
	"github.com/MrJamesThe3rd/haulbook/internal/database"
	"github.com/MrJamesThe3rd/haulbook/internal/export"
	haulbookHttp "github.com/MrJamesThe3rd/haulbook/internal/http"
	auditHandler "github.com/MrJamesThe3rd/haulbook/internal/http/audit"
	exportHandler "github.com/MrJamesThe3rd/haulbook/internal/http/export"
	"github.com/MrJamesThe3rd/haulbook/internal/http/middleware"
	payrollHandler "github.com/MrJamesThe3rd/haulbook/internal/http/payroll"
	sessionHandler "github.com/MrJamesThe3rd/haulbook/internal/http/session"
	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
	sessionStore "github.com/MrJamesThe3rd/haulbook/internal/session/store"
	"github.com/MrJamesThe3rd/haulbook/internal/weighticket"
)

const (
	idempotencyTTL = 24 * time.Hour
	sweepInterval  = 10 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := sessionStore.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare session store", "error", err)
		os.Exit(1)
	}

	go sweepSessions(ctx, store)

	manager := session.NewManager(store)

	client, err := backend.New(cfg.Backend.URL, cfg.Backend.Timeout, backend.WithUnauthorized(manager.Invalidate))
	if err != nil {
		slog.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}

	rdb := connectRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		payrollService = payroll.NewService(client)
		exportService  = export.NewService(payrollService)
	)

	var (
		sessionH = sessionHandler.NewHandler(manager)
		payrollH = payrollHandler.NewHandler(payrollService, weighticket.NewParser(), cfg.Backend.Timeout)
		exportH  = exportHandler.NewHandler(exportService)
		auditH   = auditHandler.NewHandler(client)
	)

	router := haulbookHttp.New(haulbookHttp.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		Sessions:       manager,
		Limiters:       middleware.NewLimiters(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		Redis:          rdb,
		IdempotencyTTL: idempotencyTTL,
	}, sessionH, payrollH, exportH, auditH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + cfg.Backend.Timeout,
	}

	slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "backend", cfg.Backend.URL)

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// connectRedis returns nil when redis is not configured or not reachable;
// the API then serves without idempotent replay.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		slog.Info("REDIS_ADDR not set, idempotency keys disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable, idempotency keys disabled", "addr", cfg.Redis.Addr, "error", err)
		_ = rdb.Close()

		return nil
	}

	return rdb
}

func sweepSessions(ctx context.Context, store *sessionStore.Store) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.DeleteExpired(ctx, now)
			if err != nil {
				slog.Warn("failed to sweep expired sessions", "error", err)
				continue
			}

			if n > 0 {
				slog.Info("swept expired sessions", "count", n)
			}
		}
	}
}
