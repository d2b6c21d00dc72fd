package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/servis/recharge-bot/internal/config"
	"github.com/servis/recharge-bot/internal/domain/ledger"
	"github.com/servis/recharge-bot/internal/middleware"
	"github.com/servis/recharge-bot/internal/pkg/jwt"
	pkgresponse "github.com/servis/recharge-bot/internal/pkg/response"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// newRouter builds the ops API. Ledger routes are mounted only when a JWT
// service is configured.
func newRouter(cfg *config.Config, db *sqlx.DB, ledgerHandler *ledger.Handler, jwtService *jwt.Service) http.Handler {
	var p pinger
	if db != nil {
		p = db
	}
	return buildRouter(cfg, p, ledgerHandler, jwtService)
}

func buildRouter(cfg *config.Config, db pinger, ledgerHandler *ledger.Handler, jwtService *jwt.Service) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(db))

	if jwtService != nil && ledgerHandler != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Mount("/transactions", ledgerHandler.Routes(middleware.Auth(jwtService), middleware.RequireStaff()))
		})
	}

	return r
}

func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				pkgresponse.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "database unreachable")
				return
			}
		}
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	}
}
