// cmd/server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/membership"
	"librarium/internal/session"
	"librarium/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, "librarium", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("postgres migrate failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)

	circulationSvc := circulation.NewService(db)
	membershipSvc := membership.NewService(db, circulationSvc)
	catalogSvc := catalog.NewService(db, circulationSvc)

	membershipHandler := membership.NewHandler(membershipSvc, sessions, cfg.SessionTTL, logger)
	catalogHandler := catalog.NewHandler(catalogSvc, logger)
	circulationHandler := circulation.NewHandler(circulationSvc, logger)

	requireAuth := session.RequireAuth(sessions)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", membershipHandler.HandleRegister)
		r.Post("/login", membershipHandler.HandleLogin)
		r.Post("/logout", membershipHandler.HandleLogout)
		r.With(requireAuth).Get("/me", membershipHandler.HandleMe)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", membershipHandler.HandleList)
		r.Put("/{id}", membershipHandler.HandleUpdate)
		r.Delete("/{id}", membershipHandler.HandleDelete)
	})

	r.Route("/api/books", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", catalogHandler.HandleAdd)
		r.Get("/", catalogHandler.HandleList)
		r.Get("/{id}", catalogHandler.HandleGet)
		r.Put("/{id}", catalogHandler.HandleUpdate)
		r.Delete("/{id}", catalogHandler.HandleRemove)
	})

	r.Route("/api/loans", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/checkout", circulationHandler.HandleCheckout)
		r.Post("/{id}/return", circulationHandler.HandleReturn)
		r.Get("/", circulationHandler.HandleList)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("librarium listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}
}
