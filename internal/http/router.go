package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/haulbook/internal/http/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/http/export"
	hbmw "github.com/MrJamesThe3rd/haulbook/internal/http/middleware"
	"github.com/MrJamesThe3rd/haulbook/internal/http/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/http/session"
)

type Options struct {
	CORSOrigins    []string
	Sessions       hbmw.SessionSource
	Limiters       *hbmw.Limiters
	Redis          *redis.Client // nil disables idempotent replay
	IdempotencyTTL time.Duration
}

func New(
	opts Options,
	sessionV1 *session.Handler,
	payrollV1 *payroll.Handler,
	exportV1 *export.Handler,
	auditV1 *audit.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", hbmw.SessionHeader, hbmw.IdempotencyHeader},
		ExposedHeaders:   []string{"Content-Disposition", "X-Row-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			sessionV1.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(hbmw.RequireSession(opts.Sessions))
			r.Use(hbmw.RateLimit(opts.Limiters))
			r.Use(hbmw.Idempotency(opts.Redis, opts.IdempotencyTTL))

			r.Route("/payroll", func(r chi.Router) {
				exportV1.Routes(r)
				payrollV1.Routes(r)
			})

			r.Route("/audit", auditV1.Routes)
		})
	})

	return router
}
