package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/arthuur01/capitalplay/internal/catalog"
	"github.com/arthuur01/capitalplay/internal/config"
	"github.com/arthuur01/capitalplay/internal/game"
	"github.com/arthuur01/capitalplay/internal/metrics"
	"github.com/arthuur01/capitalplay/internal/sim"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// --- Initialize catalog ---
	var cat catalog.Catalog
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		pg := catalog.NewPostgresCatalog(pool)
		if err := pg.Migrate(context.Background()); err != nil {
			slog.Error("migration failed", "err", err)
			os.Exit(1)
		}
		cat = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			cat = catalog.NewCachedCatalog(cat, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory catalog (data will not persist)")
		mem := catalog.NewMemoryCatalog()
		if _, err := mem.SeedDefaults(context.Background()); err != nil {
			slog.Error("seeding default catalog failed", "err", err)
			os.Exit(1)
		}
		cat = mem
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	wsHub := game.NewWSHub()
	go wsHub.Run()

	// --- Session manager + game service ---
	// The shared math/rand source is locked internally, so concurrent
	// session tickers can draw from it safely.
	manager := game.NewManager(cat, cfg.StartingCash, cfg.TickInterval, sim.SystemRand(), wsHub)
	defer manager.Shutdown()

	svc := game.NewService(cat, manager, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"capitalplay"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time tick and trade events.
		r.Get("/ws", wsHub.HandleWS)

		// Game session.
		r.Get("/game", svc.GetGame)
		r.Post("/game/buy", svc.Buy)
		r.Post("/game/sell", svc.Sell)
		r.Post("/game/reset", svc.Reset)
		r.Delete("/game/session", svc.DropSession)

		// Instrument catalog.
		r.Get("/instruments", svc.ListInstruments)
		r.Post("/instruments", svc.CreateInstrument)
		r.Post("/instruments/init", svc.InitDefaults)
		r.Patch("/instruments/{instrumentID}", svc.UpdateInstrument)
		r.Delete("/instruments/{instrumentID}", svc.DeleteInstrument)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		slog.Info("capitalplay listening", "port", cfg.Port, "tick_interval", cfg.TickInterval.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down capitalplay...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	manager.Shutdown()
	fmt.Println("capitalplay stopped")
}
